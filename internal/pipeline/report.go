package pipeline

import (
	"fmt"
	"io"

	"flatsheet/internal"
)

func PrintErrors(w io.Writer, errs []internal.ValidationError) {
	for i, e := range errs {
		fmt.Fprintf(w, "%d  -   %s : %s\n", i+1, e.Type, e.Message)
	}
}

func PrintCreated(w io.Writer, files []string) {
	for _, name := range files {
		fmt.Fprintf(w, "File %s created successfully\n", name)
	}
}
