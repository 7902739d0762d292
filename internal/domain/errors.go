package domain

import "fmt"

func incomplete(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrIncompleteSession, fmt.Sprintf(format, args...))
}
