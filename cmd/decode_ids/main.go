// Command decode_ids decodes the base-63 tokens that
// internal/protocoladapter puts on the wire, for debugging query
// responses offline without spinning up a server. A token is reported as
// a symbol ref when its low three bits hold a known kind tag and as a
// location otherwise; the token shapes carry no marker of their own, so
// a location token can be shown as a symbol ref and a plain id token is
// shown as one of the two. A token that does not decode is reported as
// an error.
package main

import (
	"fmt"
	"os"

	"github.com/standardbeagle/cqgo/internal/idcodec"
)

func main() {
	if len(os.Args) < 2 {
		fmt.Println("usage: decode_ids <token>...")
		os.Exit(1)
	}

	for _, encoded := range os.Args[1:] {
		if kind, id, err := idcodec.DecodeSymbolRef(encoded); err == nil {
			fmt.Printf("%s -> SymbolRef{Kind=%s, ID=%d}\n", encoded, kind, id)
			continue
		}
		if file, line, err := idcodec.DecodeLocation(encoded); err == nil {
			fmt.Printf("%s -> Location{File=%d, Line=%d}\n", encoded, file, line)
			continue
		}
		v, err := idcodec.Decode(encoded)
		if err != nil {
			fmt.Printf("%s -> error: %v\n", encoded, err)
			continue
		}
		fmt.Printf("%s -> raw=%d\n", encoded, v)
	}
}
