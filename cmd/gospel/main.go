// Command gospel evaluates a GoSpel expression from the command line.
//
// The root object and context variables are supplied as YAML files, which
// keeps the command useful for quick checks against configuration-shaped
// data:
//
//	gospel 'order.total > 100 and #vip' --root order.yaml --vars flags.yaml
package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/sandrolain/gospel"
	"github.com/sandrolain/gospel/pkg/evaluator"
	"github.com/sandrolain/gospel/pkg/parser"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var rootFile string
	var varsFile string
	var timeout time.Duration
	var debug bool

	cmd := &cobra.Command{
		Use:   "gospel <expression>",
		Short: "Evaluate a GoSpel expression",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runEval(cmd, args[0], rootFile, varsFile, timeout, debug)
		},
		SilenceUsage: true,
	}

	cmd.Flags().StringVar(&rootFile, "root", "", "YAML file holding the root object")
	cmd.Flags().StringVar(&varsFile, "vars", "", "YAML file holding context variables (top-level mapping)")
	cmd.Flags().DurationVar(&timeout, "timeout", 30*time.Second, "evaluation timeout")
	cmd.Flags().BoolVar(&debug, "debug", false, "enable per-node debug logging")
	cmd.AddCommand(newParseCmd())
	cmd.Version = gospel.Version()

	return cmd
}

func runEval(cmd *cobra.Command, source, rootFile, varsFile string, timeout time.Duration, debug bool) error {
	root, err := loadYAML(rootFile)
	if err != nil {
		return fmt.Errorf("loading root object: %w", err)
	}

	expr, err := gospel.Compile(source)
	if err != nil {
		return err
	}

	ectx := evaluator.NewEvaluationContext(root)
	if varsFile != "" {
		vars, err := loadYAMLMap(varsFile)
		if err != nil {
			return fmt.Errorf("loading variables: %w", err)
		}
		for name, value := range vars {
			ectx.SetVariable(name, value)
		}
	}

	eval := evaluator.New(
		evaluator.WithTimeout(timeout),
		evaluator.WithDebug(debug),
	)
	result, err := eval.Eval(cmd.Context(), expr, ectx)
	if err != nil {
		return err
	}

	out, err := yaml.Marshal(result)
	if err != nil {
		return err
	}
	fmt.Fprint(cmd.OutOrStdout(), string(out))
	return nil
}

func newParseCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "parse <expression>",
		Short: "Parse an expression and report whether it is valid",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			expr, err := parser.Parse(args[0])
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "ok: %s\n", expr.Source())
			return nil
		},
	}
}

// loadYAML decodes a YAML document into a generic value. An empty path
// yields a nil root object.
func loadYAML(path string) (interface{}, error) {
	if path == "" {
		return nil, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var value interface{}
	if err := yaml.Unmarshal(data, &value); err != nil {
		return nil, err
	}
	return normalizeYAML(value), nil
}

func loadYAMLMap(path string) (map[string]interface{}, error) {
	value, err := loadYAML(path)
	if err != nil {
		return nil, err
	}
	m, ok := value.(map[string]interface{})
	if !ok {
		return nil, fmt.Errorf("%s: expected a top-level mapping", path)
	}
	return m, nil
}

// normalizeYAML rewrites YAML integers to int64 so arithmetic inside
// expressions works on the canonical integer shape.
func normalizeYAML(value interface{}) interface{} {
	switch v := value.(type) {
	case int:
		return int64(v)
	case map[string]interface{}:
		for k, item := range v {
			v[k] = normalizeYAML(item)
		}
		return v
	case []interface{}:
		for i, item := range v {
			v[i] = normalizeYAML(item)
		}
		return v
	default:
		return value
	}
}
