package cli

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/zlgo/testgen-agent/pkg/console"
	"github.com/zlgo/testgen-agent/pkg/event"
)

func runInteractive(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}
	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.shutdown()

	out := os.Stdout
	console.ClearScreen(out)
	console.Banner(out, "testgen-agent", "LLM 驱动的测试用例生成助手")
	console.Infof(out, "workspace: %s", a.settings.Workspace)
	console.Infof(out, "model: %s", a.settings.AgentModel)
	console.Infof(out, "type exit, quit or q to leave")
	console.Divider(out)

	reader := bufio.NewReader(os.Stdin)
	for {
		fmt.Fprint(out, console.UserPromptLabel())
		line, err := reader.ReadString('\n')
		if err != nil {
			// EOF ends the session like an explicit exit
			fmt.Fprintln(out)
			return nil
		}
		input := strings.TrimSpace(line)
		switch input {
		case "":
			continue
		case "exit", "quit", "q":
			fmt.Fprintln(out, "Bye.")
			return nil
		}

		if err := a.runTurn(ctx, input); err != nil {
			fmt.Fprintln(out, console.FormatMarkdown(fmt.Sprintf("**error:** %v", err)))
		}
		console.Divider(out)
	}
}

// runTurn streams one agent turn to the terminal.
func (a *app) runTurn(ctx context.Context, input string) error {
	events, err := a.agent.RunStream(ctx, input)
	if err != nil {
		return err
	}

	renderer := &console.Renderer{Out: os.Stdout}
	spin := &console.Spinner{Out: os.Stdout}
	spin.Start()
	for evt := range events {
		spin.Stop()
		renderer.Handle(evt)
		// after a tool result the next model call starts
		if evt.Type == event.EventToolResult {
			spin.Start()
		}
	}
	spin.Stop()
	return nil
}
