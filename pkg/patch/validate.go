package patch

// Validator checks a diff before it is returned or cached. For real files
// it runs before edits are computed, so it sees paths, modes, sizes and the
// patch type but no Edits or HeaderLines.
type Validator interface {
	Validate(out FileDiffOutput) error
}

// Validators runs each validator in order and stops at the first error.
type Validators []Validator

func (vs Validators) Validate(out FileDiffOutput) error {
	for _, v := range vs {
		if err := v.Validate(out); err != nil {
			return err
		}
	}
	return nil
}

// SizeValidator rejects text diffs whose new side is larger than
// MaxFileSizeBytes. Zero means unlimited; binary diffs always pass.
type SizeValidator struct {
	MaxFileSizeBytes int64
}

func (v SizeValidator) Validate(out FileDiffOutput) error {
	if v.MaxFileSizeBytes <= 0 || out.PatchType == PatchBinary {
		return nil
	}
	if out.Size > v.MaxFileSizeBytes {
		return &SizeLimitExceededError{
			Path:      out.Path(),
			Threshold: v.MaxFileSizeBytes,
			Actual:    out.Size,
		}
	}
	return nil
}
