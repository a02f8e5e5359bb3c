package main

import (
	"fmt"
	"io"

	"github.com/wippyai/userhost/trace"
)

func replay(w io.Writer, st styles, path string) error {
	store, err := trace.Open(path, &trace.Options{ReadOnly: true})
	if err != nil {
		return err
	}
	defer store.Close()

	exchanges, err := store.List()
	if err != nil {
		return err
	}
	for _, ex := range exchanges {
		method := ex.Method
		if method == "" {
			method = fmt.Sprintf("kind(%#x)", ex.Kind)
		}
		fmt.Fprintf(w, "%4d %#x %s %s -> %s %s %s\n",
			ex.Seq, ex.ID,
			st.method.Render(method),
			HexBytes(ex.Payload),
			st.value.Render(HexBytes(ex.Answer).String()),
			st.cost.Render(fmt.Sprintf("cost %d", ex.Cost)),
			st.help.Render(ex.At.Format("15:04:05.000")))
	}
	fmt.Fprintf(w, "%d exchanges\n", len(exchanges))
	return nil
}
