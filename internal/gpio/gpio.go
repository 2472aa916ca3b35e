// Package gpio provides GPIO input reading with hardware abstraction.
// The real implementation uses Linux GPIO character device.
// The fake implementation allows testing without hardware.
package gpio

// Reader reads the levels of a fixed set of input lines.
type Reader interface {
	// Read returns one level per line, in configuration order.
	// true = line active. No inversion is applied here; the binary input
	// polarity property owns that.
	Read() ([]bool, error)

	// Close releases GPIO resources.
	Close() error
}

// DefaultChip is the GPIO character device used when none is configured.
const DefaultChip = "gpiochip0"
