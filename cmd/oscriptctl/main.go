// Command oscriptctl is a thin convenience wrapper around the
// lex/parse/decode/run pipeline, for interactive exercise of a single
// OPE or SK file from a shell. It is not a contract (spec.md §1 names
// it a non-goal); the pipeline packages under internal/ are.
package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/naojsoft/oscript/internal/collab"
	"github.com/naojsoft/oscript/internal/decode"
	"github.com/naojsoft/oscript/internal/env"
	"github.com/naojsoft/oscript/internal/obelib"
	"github.com/naojsoft/oscript/internal/obsconfig"
	"github.com/naojsoft/oscript/internal/obslog"
	"github.com/naojsoft/oscript/internal/paraparse"
	"github.com/naojsoft/oscript/internal/skparse"
	"github.com/naojsoft/oscript/internal/sklex"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var logLevel string

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "oscriptctl",
		Short: "Inspect and run oscript OPE/SK skeleton files",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			lvl, err := logrus.ParseLevel(logLevel)
			if err != nil {
				return fmt.Errorf("invalid --log-level %q: %w", logLevel, err)
			}
			obslog.SetLevel(lvl)
			return nil
		},
	}
	root.PersistentFlags().StringVar(&logLevel, "log-level", "warn", "log level (debug, info, warn, error)")
	root.AddCommand(newLexCmd(), newParseCmd(), newRunCmd())
	return root
}

func readBody(path string) (string, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	sections := obelib.Split(string(raw))
	return sections.Body, nil
}

func newLexCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "lex <file>",
		Short: "Tokenize an SK/OPE file's body section and print its tokens",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			body, err := readBody(args[0])
			if err != nil {
				return err
			}
			res := sklex.Tokenize(body, 1)
			for _, tok := range res.Tokens {
				fmt.Printf("%4d  %-14s %q\n", tok.Line, tok.Kind, tok.Value)
			}
			if res.Errors > 0 {
				return fmt.Errorf("%d lexer error(s)", res.Errors)
			}
			return nil
		},
	}
}

func newParseCmd() *cobra.Command {
	var paraPath string
	cmd := &cobra.Command{
		Use:   "parse <file>",
		Short: "Parse an SK/OPE file into its decoded AST and print it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			body, err := readBody(args[0])
			if err != nil {
				return err
			}
			prog, errs := skparse.Parse(body, 1)
			for _, e := range errs {
				fmt.Fprintln(os.Stderr, "parse error:", e)
			}
			if len(errs) > 0 {
				return fmt.Errorf("%d parse error(s)", len(errs))
			}

			e := env.New(nil, nil)
			if paraPath != "" {
				raw, err := os.ReadFile(paraPath)
				if err != nil {
					return err
				}
				table, perrs := paraparse.Parse(string(raw), 1)
				for _, pe := range perrs {
					fmt.Fprintln(os.Stderr, "para error:", pe)
				}
				values, verrs := table.AllParamValues(map[string]string{})
				for _, ve := range verrs {
					fmt.Fprintln(os.Stderr, "para warning:", ve)
				}
				for name, v := range values {
					e.SetReg(name, v)
				}
			}

			decoded, derrs := decode.New(e).Decode(prog)
			for _, de := range derrs {
				fmt.Fprintln(os.Stderr, "decode error:", de)
			}
			fmt.Println(decoded.String())
			if len(derrs) > 0 {
				return fmt.Errorf("%d decode error(s)", len(derrs))
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&paraPath, "para", "", "sibling PARA file used to resolve register defaults before decoding")
	return cmd
}

func newRunCmd() *cobra.Command {
	var paraPath string
	var conditions []string
	cmd := &cobra.Command{
		Use:   "run <file>",
		Short: "Decode and interpret an SK/OPE file against in-memory collaborators",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			body, err := readBody(args[0])
			if err != nil {
				return err
			}
			prog, errs := skparse.Parse(body, 1)
			if len(errs) > 0 {
				for _, e := range errs {
					fmt.Fprintln(os.Stderr, "parse error:", e)
				}
				return fmt.Errorf("%d parse error(s)", len(errs))
			}

			status := collab.NewInMemoryStatusService()
			e := env.New(status, collab.NewInMemoryFrameService())

			if paraPath != "" {
				raw, err := os.ReadFile(paraPath)
				if err != nil {
					return err
				}
				table, _ := paraparse.Parse(string(raw), 1)
				current := parseConditions(conditions)
				values, _ := table.AllParamValues(current)
				for name, v := range values {
					e.SetReg(name, v)
				}
			}

			decoded, derrs := decode.New(e).Decode(prog)
			if len(derrs) > 0 {
				for _, de := range derrs {
					fmt.Fprintln(os.Stderr, "decode error:", de)
				}
				return fmt.Errorf("%d decode error(s)", len(derrs))
			}

			cfg, err := obsconfig.Load()
			if err != nil {
				return err
			}
			tf := collab.NewInMemoryTaskFactory()
			ex := newDemoExecutor(e, tf, cfg)
			v, err := ex.Run(context.Background(), decoded)
			if err != nil {
				return err
			}
			if v != nil {
				fmt.Println(v)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&paraPath, "para", "", "sibling PARA file used to resolve register defaults before running")
	cmd.Flags().StringArrayVar(&conditions, "cond", nil, "name=value condition used to select PARA table entries (repeatable)")
	return cmd
}

func parseConditions(pairs []string) map[string]string {
	out := map[string]string{}
	for _, p := range pairs {
		name, value, ok := strings.Cut(p, "=")
		if !ok {
			continue
		}
		out[strings.TrimSpace(name)] = strings.TrimSpace(value)
	}
	return out
}
