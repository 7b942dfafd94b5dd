// Package checksum stamps generated output with a digest and detects output
// that was edited by hand, or went stale, since it was last generated.
package checksum

import (
	"crypto/md5"
	"encoding/hex"
	"fmt"
)

// MismatchError reports an embedded digest that does not match the output.
// Edited is set when the output already in the document no longer matches
// its digest; otherwise the freshly generated output differs from it.
type MismatchError struct {
	Old    string
	New    string
	Edited bool
}

func (e *MismatchError) Error() string {
	if e.Edited {
		return fmt.Sprintf("checksum mismatch: embedded output was edited (checksum %s, content %s)", e.Old, e.New)
	}
	return fmt.Sprintf("checksum mismatch: generated output changed (checksum %s, generated %s)", e.Old, e.New)
}

// Verifier stamps or verifies checksum annotations. The zero value is disabled.
type Verifier struct {
	Enabled bool
}

// Digest returns the hex encoded digest of output.
func Digest(output string) string {
	sum := md5.Sum([]byte(output))
	return hex.EncodeToString(sum[:])
}

// Annotation formats the text placed right after the end-of-output marker.
func Annotation(digest string) string {
	return " (checksum: " + digest + ")"
}

// VerifyEmbedded checks the output currently in the document against the
// digest annotated next to it. previous is empty when there is no annotation.
func (v Verifier) VerifyEmbedded(embedded, previous string) error {
	if !v.Enabled || previous == "" {
		return nil
	}
	if digest := Digest(embedded); digest != previous {
		return &MismatchError{Old: previous, New: digest, Edited: true}
	}
	return nil
}

// StampOrVerify returns the annotation for freshly generated output. previous
// is the digest already embedded in the document, or empty when there is none.
func (v Verifier) StampOrVerify(output, previous string) (string, error) {
	if !v.Enabled {
		return "", nil
	}

	digest := Digest(output)
	if previous != "" && previous != digest {
		return "", &MismatchError{Old: previous, New: digest}
	}
	return Annotation(digest), nil
}
