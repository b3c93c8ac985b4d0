// Package serialout writes readings as text lines to a serial port, for a
// display or a controller that only speaks UART.
package serialout

import (
	"fmt"
	"io"

	"go.bug.st/serial"

	"github.com/sweeney/sonar-sensor/internal/ranging"
)

// FormatLine renders a reading as "D<cm> L<state> R<state>\r\n".
func FormatLine(r ranging.Reading, conv ranging.Converter) string {
	return fmt.Sprintf("D%d L%s R%s\r\n", conv.Centimeters(r.Distance), r.Left.State, r.Right.State)
}

// Writer sends one line per reading.
type Writer struct {
	w    io.Writer
	conv ranging.Converter
}

// New creates a Writer on top of w.
func New(w io.Writer, conv ranging.Converter) *Writer {
	return &Writer{w: w, conv: conv}
}

// Open opens a serial port in 8N1 mode at the given baud rate.
func Open(port string, baud int, conv ranging.Converter) (*Writer, error) {
	p, err := serial.Open(port, &serial.Mode{
		BaudRate: baud,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	})
	if err != nil {
		return nil, fmt.Errorf("open serial port %s: %w", port, err)
	}
	return New(p, conv), nil
}

// Ports lists the serial ports present on the system.
func Ports() ([]string, error) {
	ports, err := serial.GetPortsList()
	if err != nil {
		return nil, fmt.Errorf("list serial ports: %w", err)
	}
	return ports, nil
}

// Write sends the line for r.
func (w *Writer) Write(r ranging.Reading) error {
	if _, err := io.WriteString(w.w, FormatLine(r, w.conv)); err != nil {
		return fmt.Errorf("write serial: %w", err)
	}
	return nil
}

// Close closes the underlying port if it can be closed.
func (w *Writer) Close() error {
	if c, ok := w.w.(io.Closer); ok {
		return c.Close()
	}
	return nil
}
