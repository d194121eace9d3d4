package display

import (
	"fmt"
	"io"

	"github.com/backmassage/spacesaver/internal/term"
)

// PrintBanner prints the ASCII art banner; uses Magenta if colors are enabled.
func PrintBanner(w io.Writer) {
	fmt.Fprint(w, term.Magenta)
	fmt.Fprint(w, ` ___ _ __   __ _  ___ ___  ___  __ ___   _____ _ __
/ __| '_ \ / _`+"`"+` |/ __/ _ \/ __|/ _`+"`"+` \ \ / / _ \ '__|
\__ \ |_) | (_| | (_|  __/\__ \ (_| |\ V /  __/ |
|___/ .__/ \__,_|\___\___||___/\__,_| \_/ \___|_|
    |_|
`)
	fmt.Fprint(w, term.NC)
}
