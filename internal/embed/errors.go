package embed

import "fmt"

var (
	errInvalidDim    = fmt.Errorf("dim must be positive")
	errUnknownDevice = fmt.Errorf("device must be one of cpu, cuda")
)

func dimMismatchError(want, got int) error {
	return fmt.Errorf("embedding dimension mismatch: expected %d, got %d", want, got)
}
