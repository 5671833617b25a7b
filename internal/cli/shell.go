package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/rcliao/trialscout/internal/session"
)

func init() {
	cmd := &cobra.Command{
		Use:   "shell [file|-]",
		Short: "Browse the trials of a transcript interactively",
		Long: "Upload a transcript, then read commands from stdin one per line and print JSON results. " +
			"With no transcript the shell starts empty; use load or resume. Type help for commands.",
		Args: cobra.MaximumNArgs(1),
		Run:  runShell,
	}
	cmd.Flags().String("resume", "", "Resume previously uploaded clinical notes by ID")

	RootCmd.AddCommand(cmd)
}

func runShell(cmd *cobra.Command, args []string) {
	ctx := cmd.Context()
	sh := newShell(session.NewCoordinator(newClient(), logger), cmd.OutOrStdout())

	resume, _ := cmd.Flags().GetString("resume")
	switch {
	case resume != "":
		sh.exec(ctx, "resume "+resume)
	case len(args) > 0:
		transcript, err := readInput(cmd, args)
		if err != nil {
			exitErr("read transcript", err)
		}
		if err := sh.load(ctx, transcript); err != nil {
			exitErr("upload", err)
		}
	}

	if err := sh.run(ctx, cmd.InOrStdin()); err != nil {
		exitErr("shell", err)
	}
}

const shellHelp = `commands:
  list                 show the trials of the session
  search <text>        filter by nct_id substring (empty clears)
  detail <nct_id>      open a trial, or close it when open
  rank                 toggle the AI ranking
  ask <nct_id> <text>  ask a question about a trial
  save <nct_id>        save or unsave a trial
  saved                list saved trials
  refresh              re-read the saved list
  load <file>          upload a new transcript
  resume <id>          resume uploaded clinical notes
  reset                drop the session
  help                 show this help
  quit                 exit`

type shell struct {
	coord *session.Coordinator
	out   io.Writer
}

func newShell(coord *session.Coordinator, out io.Writer) *shell {
	sh := &shell{coord: coord, out: out}
	coord.OnSavedCountChanged(func(n int) {
		fmt.Fprintf(out, `{"saved_count":%d}`+"\n", n)
	})
	return sh
}

// run executes commands from in until EOF or quit.
func (sh *shell) run(ctx context.Context, in io.Reader) error {
	sc := bufio.NewScanner(in)
	sc.Buffer(make([]byte, 64*1024), 1<<20)
	for sc.Scan() {
		if !sh.exec(ctx, sc.Text()) {
			return nil
		}
	}
	return sc.Err()
}

// exec runs one command line and reports whether the shell should go on.
func (sh *shell) exec(ctx context.Context, line string) bool {
	name, rest, _ := strings.Cut(strings.TrimSpace(line), " ")
	rest = strings.TrimSpace(rest)

	var err error
	switch name {
	case "":
	case "quit", "exit":
		return false
	case "help":
		fmt.Fprintln(sh.out, shellHelp)
	case "list":
		sh.print(sh.coord.Snapshot())
	case "search":
		sh.coord.SetSearch(rest)
		sh.print(sh.coord.Snapshot())
	case "detail":
		err = sh.detail(ctx, rest)
	case "rank":
		if _, err = sh.coord.ToggleRanking(ctx); err == nil {
			sh.print(sh.coord.Snapshot())
		}
	case "ask":
		err = sh.ask(ctx, rest)
	case "save":
		var saved bool
		if saved, err = sh.coord.SaveOrRemove(ctx, rest); err == nil {
			sh.print(map[string]any{"nct_id": rest, "saved": saved})
		}
	case "saved":
		sh.print(sh.coord.SavedTrials())
	case "refresh":
		if err = sh.coord.RefreshSaved(ctx); err == nil {
			sh.print(sh.coord.SavedTrials())
		}
	case "load":
		var transcript []byte
		if transcript, err = os.ReadFile(rest); err == nil {
			err = sh.load(ctx, string(transcript))
		}
	case "resume":
		var res *session.LoadResult
		if res, err = sh.coord.ResumeSession(ctx, rest); err == nil {
			sh.loaded(res)
		}
	case "reset":
		sh.coord.Reset()
		sh.print(map[string]bool{"ok": true})
	default:
		err = fmt.Errorf("unknown command %q (try help)", name)
	}
	if err != nil {
		sh.print(map[string]string{"error": err.Error()})
	}
	return true
}

func (sh *shell) load(ctx context.Context, transcript string) error {
	res, err := sh.coord.LoadSession(ctx, transcript)
	if err != nil {
		return err
	}
	sh.loaded(res)
	return nil
}

func (sh *shell) loaded(res *session.LoadResult) {
	out := map[string]any{"notes": res.Notes}
	if res.SyncErr != nil {
		out["saved_sync_error"] = res.SyncErr.Error()
	}
	sh.print(out)
}

func (sh *shell) detail(ctx context.Context, id string) error {
	d, err := sh.coord.ViewDetail(ctx, id)
	if err != nil {
		return err
	}
	if d == nil {
		sh.print(map[string]any{"nct_id": id, "closed": true})
		return nil
	}
	sh.print(d)
	return nil
}

func (sh *shell) ask(ctx context.Context, rest string) error {
	id, query, _ := strings.Cut(rest, " ")
	a, err := sh.coord.AskQuestion(ctx, id, query)
	if err != nil {
		return err
	}
	sh.print(a)
	return nil
}

func (sh *shell) print(v any) { printJSON(sh.out, v) }
