package main

import (
	"bufio"
	"fmt"
	"io"
	"os"

	"github.com/goccy/go-json"
	"github.com/spf13/cobra"

	"github.com/ehr/patientdetails/internal/details"
	"github.com/ehr/patientdetails/internal/domain/account"
)

func renderCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "render",
		Short: "Render one user JSON document to an HTML page",
		RunE: func(cmd *cobra.Command, args []string) error {
			input, _ := cmd.Flags().GetString("input")
			output, _ := cmd.Flags().GetString("output")

			in, err := os.Open(input)
			if err != nil {
				return fmt.Errorf("open input: %w", err)
			}
			defer in.Close()

			if output == "" || output == "-" {
				return renderUser(in, cmd.OutOrStdout())
			}

			out, err := os.Create(output)
			if err != nil {
				return fmt.Errorf("create output: %w", err)
			}
			w := bufio.NewWriter(out)
			if err := renderUser(in, w); err != nil {
				out.Close()
				return err
			}
			if err := w.Flush(); err != nil {
				out.Close()
				return fmt.Errorf("write output: %w", err)
			}
			if err := out.Close(); err != nil {
				return fmt.Errorf("close output: %w", err)
			}
			fmt.Fprintf(cmd.ErrOrStderr(), "Wrote %s\n", output)
			return nil
		},
	}
	cmd.Flags().String("input", "", "Path to a user JSON document")
	cmd.Flags().String("output", "", "Output HTML file (default stdout)")
	_ = cmd.MarkFlagRequired("input")
	return cmd
}

// renderUser decodes and validates a user, then writes its details page.
func renderUser(in io.Reader, out io.Writer) error {
	var u account.User
	if err := json.NewDecoder(in).Decode(&u); err != nil {
		return fmt.Errorf("decode user: %w", err)
	}
	if err := u.Validate(); err != nil {
		return err
	}

	renderer, err := details.NewRenderer()
	if err != nil {
		return err
	}
	return renderer.RenderPage(out, details.Build(u))
}
