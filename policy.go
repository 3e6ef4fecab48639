package authcore

// minPasswordBytes is the policy floor applied before hashing. Length is
// measured in raw bytes, matching how the hasher consumes the value.
const minPasswordBytes = 8

// CheckPasswordStrength applies the server-wide password policy: at least
// minPasswordBytes bytes with one upper-case letter, one lower-case letter,
// and one digit. The policy runs before hashing so weak passwords never
// reach the hasher.
func CheckPasswordStrength(password string) error {
	if len(password) < minPasswordBytes {
		return ErrPasswordNotStrong
	}
	var upper, lower, digit bool
	for _, r := range password {
		switch {
		case r >= 'A' && r <= 'Z':
			upper = true
		case r >= 'a' && r <= 'z':
			lower = true
		case r >= '0' && r <= '9':
			digit = true
		}
	}
	if !upper || !lower || !digit {
		return ErrPasswordNotStrong
	}
	return nil
}
