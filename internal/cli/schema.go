// Package cli holds helpers shared by the faqdesk and faqdeskd command trees.
package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sort"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

// EnvAnnotation names the environment variable a flag falls back to.
// It is surfaced in --help-json output.
const EnvAnnotation = "faqdesk_env"

const helpJSONFlag = "help-json"

type FlagSchema struct {
	Name      string `json:"name"`
	Shorthand string `json:"shorthand,omitempty"`
	Type      string `json:"type"`
	Default   string `json:"default,omitempty"`
	Usage     string `json:"usage,omitempty"`
	Env       string `json:"env,omitempty"`
	Required  bool   `json:"required"`
	Inherited bool   `json:"inherited,omitempty"`
}

// CommandSchema is the machine-readable description of one command and its children.
type CommandSchema struct {
	Path        string          `json:"path"`
	Use         string          `json:"use"`
	Aliases     []string        `json:"aliases,omitempty"`
	Short       string          `json:"short,omitempty"`
	Long        string          `json:"long,omitempty"`
	Example     string          `json:"example,omitempty"`
	Runnable    bool            `json:"runnable"`
	Flags       []FlagSchema    `json:"flags,omitempty"`
	Subcommands []CommandSchema `json:"subcommands,omitempty"`
}

func Describe(cmd *cobra.Command) CommandSchema {
	s := CommandSchema{
		Path:     cmd.CommandPath(),
		Use:      cmd.Use,
		Aliases:  cmd.Aliases,
		Short:    cmd.Short,
		Long:     cmd.Long,
		Example:  cmd.Example,
		Runnable: cmd.Runnable(),
	}

	cmd.LocalFlags().VisitAll(func(f *pflag.Flag) {
		if skipFlag(f) {
			return
		}
		s.Flags = append(s.Flags, describeFlag(f, false))
	})
	cmd.InheritedFlags().VisitAll(func(f *pflag.Flag) {
		if skipFlag(f) {
			return
		}
		s.Flags = append(s.Flags, describeFlag(f, true))
	})
	sort.SliceStable(s.Flags, func(i, j int) bool {
		if s.Flags[i].Inherited != s.Flags[j].Inherited {
			return !s.Flags[i].Inherited
		}
		return s.Flags[i].Name < s.Flags[j].Name
	})

	for _, sub := range cmd.Commands() {
		if sub.Hidden || sub.Name() == "help" || sub.Name() == "completion" {
			continue
		}
		s.Subcommands = append(s.Subcommands, Describe(sub))
	}
	return s
}

func skipFlag(f *pflag.Flag) bool {
	return f.Hidden || f.Name == "help" || f.Name == helpJSONFlag
}

func describeFlag(f *pflag.Flag, inherited bool) FlagSchema {
	fs := FlagSchema{
		Name:      f.Name,
		Shorthand: f.Shorthand,
		Type:      f.Value.Type(),
		Default:   f.DefValue,
		Usage:     f.Usage,
		Inherited: inherited,
	}
	if _, ok := f.Annotations[cobra.BashCompOneRequiredFlag]; ok {
		fs.Required = true
	}
	if env := f.Annotations[EnvAnnotation]; len(env) > 0 {
		fs.Env = env[0]
	}
	return fs
}

// WriteSchema encodes the schema of cmd to w.
func WriteSchema(w io.Writer, cmd *cobra.Command) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(Describe(cmd))
}

// BindEnv records the environment variable a flag reads when unset.
func BindEnv(flags *pflag.FlagSet, name, env string) {
	_ = flags.SetAnnotation(name, EnvAnnotation, []string{env})
}

// AddHelpJSONFlag registers --help-json on root so every subcommand accepts it.
func AddHelpJSONFlag(root *cobra.Command) {
	root.PersistentFlags().Bool(helpJSONFlag, false, "Print the command schema as JSON")
}

// CheckHelpJSON runs before Execute so the schema prints even when the
// target command's argument validation would fail.
func CheckHelpJSON(root *cobra.Command) {
	args := os.Args[1:]
	for i, arg := range args {
		if arg != "--"+helpJSONFlag {
			continue
		}
		target := resolve(root, args[:i])
		if err := WriteSchema(os.Stdout, target); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		os.Exit(0)
	}
}

// resolve walks positional words down the tree and stops at the first
// word that is not a subcommand name or alias.
func resolve(cmd *cobra.Command, words []string) *cobra.Command {
	for _, w := range words {
		next := childNamed(cmd, w)
		if next == nil {
			break
		}
		cmd = next
	}
	return cmd
}

func childNamed(cmd *cobra.Command, name string) *cobra.Command {
	for _, sub := range cmd.Commands() {
		if sub.Name() == name || sub.HasAlias(name) {
			return sub
		}
	}
	return nil
}
