package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/moorebrett0/mochi/internal/config"
	"github.com/moorebrett0/mochi/internal/persona"
)

func newInitCommand(opts *options) *cobra.Command {
	var (
		personaID string
		listen    string
		force     bool
	)
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write a starter config file",
		Long: `init picks a persona (asking when --persona is not given) and writes a
starter config to the --config path. An existing file is kept unless
--force is set.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runInit(cmd.InOrStdin(), cmd.OutOrStdout(), opts.configPath, personaID, listen, force)
		},
	}
	cmd.Flags().StringVarP(&personaID, "persona", "p", "", "persona id: "+strings.Join(persona.OrderedIDs, "|"))
	cmd.Flags().StringVar(&listen, "listen", "", "address the face server listens on")
	cmd.Flags().BoolVar(&force, "force", false, "overwrite an existing config file")
	return cmd
}

func runInit(in io.Reader, out io.Writer, path, personaID, listen string, force bool) error {
	if !force {
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("%s already exists (use --force to overwrite)", path)
		} else if !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("checking %s: %w", path, err)
		}
	}

	if personaID == "" {
		var err error
		if personaID, err = choosePersona(in, out); err != nil {
			return err
		}
	}
	data, err := config.Sample(personaID, listen)
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}

	p := persona.Registry[personaID]
	fmt.Fprintf(out, "\n  %s %s is ready. Config written to %s\n", p.Emoji, p.Name, path)
	fmt.Fprintln(out, "  Put ANTHROPIC_API_KEY, GOOGLE_API_KEY or OPENAI_API_KEY in .env for speech,")
	fmt.Fprintln(out, "  and DISCORD_BOT_TOKEN plus DISCORD_CHANNEL_ID for the Discord presence.")
	fmt.Fprintf(out, "  Then run: mochi --config %s\n", path)
	return nil
}

// choosePersona lists the personas and reads a number or id until one
// matches.
func choosePersona(in io.Reader, out io.Writer) (string, error) {
	fmt.Fprintln(out, "  pick a persona:")
	fmt.Fprintln(out)
	for i, id := range persona.OrderedIDs {
		p := persona.Registry[id]
		fmt.Fprintf(out, "  %d) %s %-8s %s\n", i+1, p.Emoji, p.Name, p.Description)
	}
	fmt.Fprintln(out)

	sc := bufio.NewScanner(in)
	for {
		fmt.Fprint(out, "  > ")
		if !sc.Scan() {
			if err := sc.Err(); err != nil {
				return "", fmt.Errorf("reading persona: %w", err)
			}
			return "", errors.New("no persona chosen")
		}
		input := strings.ToLower(strings.TrimSpace(sc.Text()))
		if n, err := strconv.Atoi(input); err == nil && n >= 1 && n <= len(persona.OrderedIDs) {
			return persona.OrderedIDs[n-1], nil
		}
		if _, ok := persona.Registry[input]; ok {
			return input, nil
		}
		fmt.Fprintf(out, "  hmm, pick a number 1-%d or type the persona name\n", len(persona.OrderedIDs))
	}
}
