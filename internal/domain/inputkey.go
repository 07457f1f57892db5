package domain

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"strings"
)

// Normalize trims the submission and checks required fields.
func (s Submission) Normalize() (Submission, error) {
	out := Submission{
		SubjectID:   strings.TrimSpace(s.SubjectID),
		RequesterID: strings.TrimSpace(s.RequesterID),
		Prompt:      strings.TrimSpace(s.Prompt),
		Style:       strings.TrimSpace(s.Style),
	}
	for _, c := range s.Collaborators {
		if c = strings.TrimSpace(c); c != "" {
			out.Collaborators = append(out.Collaborators, c)
		}
	}

	switch {
	case out.SubjectID == "":
		return out, fmt.Errorf("%w: subject_id is required", ErrInvalidSubmission)
	case out.RequesterID == "":
		return out, fmt.Errorf("%w: requester_id is required", ErrInvalidSubmission)
	case out.Prompt == "":
		return out, fmt.Errorf("%w: prompt is required", ErrInvalidSubmission)
	}
	return out, nil
}

// InputKey is the deterministic fingerprint of (subject, requester, prompt, style).
// Fields are length-prefixed so that no two distinct tuples hash the same input.
func (s Submission) InputKey() string {
	h := sha256.New()
	var lenBuf [8]byte
	for _, field := range []string{s.SubjectID, s.RequesterID, s.Prompt, s.Style} {
		binary.BigEndian.PutUint64(lenBuf[:], uint64(len(field)))
		h.Write(lenBuf[:])
		h.Write([]byte(field))
	}
	return hex.EncodeToString(h.Sum(nil))
}
