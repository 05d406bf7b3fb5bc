package config

// Validator is implemented by every component config.
type Validator interface {
	Validate() error
}

// ValidateAll stops at the first failing config.
func ValidateAll(validators ...Validator) error {
	for _, v := range validators {
		if v == nil {
			continue
		}
		if err := v.Validate(); err != nil {
			return err
		}
	}
	return nil
}
