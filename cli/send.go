package cli

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"
	"github.com/xiaoyuanzhu-com/claudechat/chat"
)

type sendResult struct {
	chat.Result
	Persisted    bool   `json:"persisted"`
	PersistError string `json:"persist_error,omitempty"`
}

func newSendCmd(e *env) *cobra.Command {
	var (
		sessionID      string
		conversationID string
		stream         bool
	)
	cmd := &cobra.Command{
		Use:   "send <message>",
		Short: "Send one message to Claude and save the exchange",
		Long: "Send one message to Claude. Without --session a new session is created\n" +
			"from the message; with it the exchange is appended to that session.",
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			out := cmd.OutOrStdout()

			var sc chat.SessionContext
			if sessionID != "" {
				if err := e.app.Chat.Open(ctx, &sc, sessionID); err != nil {
					return err
				}
			}
			sc.ConversationID = conversationID

			var onChunk func(string)
			if stream && !e.jsonOut {
				onChunk = func(line string) { fmt.Fprintln(out, line) }
			}
			res, err := e.app.Chat.Send(ctx, &sc, strings.Join(args, " "), onChunk)
			if err != nil {
				return err
			}

			if e.jsonOut {
				r := sendResult{Result: res, Persisted: res.PersistError == nil}
				if res.PersistError != nil {
					r.PersistError = res.PersistError.Error()
				}
				return printJSON(out, r)
			}
			if onChunk == nil {
				e.markdown(out, res.Reply)
			}
			printTurnFooter(cmd.ErrOrStderr(), res)
			return nil
		},
	}
	cmd.Flags().StringVarP(&sessionID, "session", "s", "", "session to continue (id or cache number)")
	cmd.Flags().StringVar(&conversationID, "conversation", "", "Claude conversation id to continue with -c")
	cmd.Flags().BoolVar(&stream, "stream", false, "print reply lines as they arrive")
	return cmd
}

func printTurnFooter(w io.Writer, res chat.Result) {
	meta := "session " + res.SessionID
	if res.Created {
		meta = "new " + meta
	}
	if res.ConversationID != "" {
		meta += " · conversation " + res.ConversationID
	}
	fmt.Fprintln(w, metaStyle.Render(meta))
	if res.PersistError != nil {
		fmt.Fprintln(w, warnStyle.Render("not saved: "+res.PersistError.Error()))
	}
}

func newChatCmd(e *env) *cobra.Command {
	var sessionID string
	cmd := &cobra.Command{
		Use:   "chat",
		Short: "Interactive chat; /new, /open <id>, /delete and /quit manage the session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			out := cmd.OutOrStdout()
			errOut := cmd.ErrOrStderr()

			var sc chat.SessionContext
			if sessionID != "" {
				if err := e.app.Chat.Open(ctx, &sc, sessionID); err != nil {
					return err
				}
				fmt.Fprintln(errOut, metaStyle.Render(fmt.Sprintf("opened %s (%d messages)", sc.SessionID, len(sc.Messages))))
			}

			scanner := bufio.NewScanner(cmd.InOrStdin())
			scanner.Buffer(make([]byte, 64*1024), 1024*1024)
			for {
				fmt.Fprint(errOut, titleStyle.Render("> "))
				if !scanner.Scan() {
					break
				}
				line := strings.TrimSpace(scanner.Text())
				if line == "" {
					continue
				}

				if strings.HasPrefix(line, "/") {
					quit, err := e.chatCommand(cmd, &sc, line)
					if err != nil {
						fmt.Fprintln(errOut, errorStyle.Render(err.Error()))
					}
					if quit {
						return nil
					}
					continue
				}

				res, err := e.app.Chat.Send(ctx, &sc, line, nil)
				if err != nil {
					if ctx.Err() != nil {
						return ctx.Err()
					}
					fmt.Fprintln(errOut, errorStyle.Render(err.Error()))
					continue
				}
				e.markdown(out, res.Reply)
				printTurnFooter(errOut, res)
			}
			return scanner.Err()
		},
	}
	cmd.Flags().StringVarP(&sessionID, "session", "s", "", "session to open first")
	return cmd
}

// chatCommand runs one slash command and reports whether to quit
func (e *env) chatCommand(cmd *cobra.Command, sc *chat.SessionContext, line string) (bool, error) {
	ctx := cmd.Context()
	errOut := cmd.ErrOrStderr()
	name, arg, _ := strings.Cut(line, " ")
	arg = strings.TrimSpace(arg)

	switch name {
	case "/quit", "/exit":
		return true, nil
	case "/new":
		sc.Reset()
		fmt.Fprintln(errOut, metaStyle.Render("new chat"))
	case "/open":
		if arg == "" {
			return false, fmt.Errorf("usage: /open <session>")
		}
		if err := e.app.Chat.Open(ctx, sc, arg); err != nil {
			return false, err
		}
		fmt.Fprintln(errOut, metaStyle.Render(fmt.Sprintf("opened %s (%d messages)", sc.SessionID, len(sc.Messages))))
	case "/delete":
		target := arg
		if target == "" {
			target = sc.SessionID
		}
		if target == "" {
			return false, fmt.Errorf("no session to delete")
		}
		// Forget compares session ids, and target may be a numeric cache id
		sessionID := target
		if conv, err := e.app.Registry.Conversation(ctx, target); err == nil && conv.SessionID != "" {
			sessionID = conv.SessionID
		}
		if err := e.app.Registry.DeleteSession(ctx, target); err != nil {
			return false, err
		}
		if sc.Forget(sessionID) {
			fmt.Fprintln(errOut, metaStyle.Render("deleted the active session, starting a new chat"))
		} else {
			fmt.Fprintln(errOut, metaStyle.Render("deleted "+target))
		}
	default:
		return false, fmt.Errorf("unknown command %s", name)
	}
	return false, nil
}
