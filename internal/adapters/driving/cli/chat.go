package cli

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"

	"github.com/custodia-labs/secondbrain-cli/internal/core/domain"
)

var chatCmd = &cobra.Command{
	Use:   "chat [message]",
	Short: "Chat with your knowledge base",
	Long: `Ask a question and stream the answer. Without a message, brain starts
an interactive conversation; type /exit or press Ctrl-D to leave.

A new chat session is created unless --session is given.

Examples:
  brain chat "What did we decide about the Q3 roadmap?"
  brain chat --session 8d2e...
  brain chat history --session 8d2e...`,
	RunE: runChat,
}

var chatSessionsCmd = &cobra.Command{
	Use:   "sessions",
	Short: "List your chat sessions",
	RunE:  runChatSessions,
}

var chatHistoryCmd = &cobra.Command{
	Use:   "history",
	Short: "Show the locally stored transcript of a session",
	RunE:  runChatHistory,
}

var chatClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Delete the locally stored transcript of a session",
	RunE:  runChatClear,
}

// Flags for chat.
var (
	chatSessionID string
	chatTitle     string
)

const exitCommand = "/exit"

func init() {
	chatCmd.PersistentFlags().StringVarP(&chatSessionID, "session", "s", "", "Chat session ID")
	chatCmd.Flags().StringVar(&chatTitle, "title", "", "Title of a new session")

	chatCmd.AddCommand(chatSessionsCmd)
	chatCmd.AddCommand(chatHistoryCmd)
	chatCmd.AddCommand(chatClearCmd)
	rootCmd.AddCommand(chatCmd)
}

func runChat(cmd *cobra.Command, args []string) error {
	if chatService == nil || sessionObserver == nil || authService == nil {
		return fmt.Errorf("chat service %w", errNotConfigured)
	}
	if _, err := restoreSession(cmd); err != nil {
		return err
	}

	message := strings.TrimSpace(strings.Join(args, " "))

	sessionID := chatSessionID
	if sessionID == "" {
		title := chatTitle
		if title == "" {
			title = titleFrom(message)
		}
		session, err := chatService.CreateSession(commandContext(cmd), title)
		if err != nil {
			return fmt.Errorf("create chat session: %w", err)
		}
		sessionID = session.ID
		cmd.Printf("Session %s\n", sessionID)
	}

	if message != "" {
		return ask(cmd, sessionID, message)
	}

	reader := bufio.NewReader(cmd.InOrStdin())
	for {
		cmd.Print("> ")
		line, err := reader.ReadString('\n')
		line = strings.TrimSpace(line)
		if line == exitCommand {
			return nil
		}
		if line != "" {
			if askErr := ask(cmd, sessionID, line); askErr != nil {
				return askErr
			}
		}
		if errors.Is(err, io.EOF) {
			cmd.Println()
			return nil
		}
		if err != nil {
			return fmt.Errorf("read input: %w", err)
		}
	}
}

// ask sends one message and prints the answer as it streams in.
func ask(cmd *cobra.Command, sessionID, message string) error {
	printer := &answerPrinter{out: cmd.OutOrStdout(), sessionID: sessionID}
	unsubscribe := sessionObserver.Subscribe(printer.handle)
	defer unsubscribe()

	_, err := chatService.Send(commandContext(cmd), sessionID, message)
	cmd.Println()
	if err == nil {
		return nil
	}

	if printer.printed > 0 {
		cmd.Println("(answer interrupted)")
	}
	switch {
	case errors.Is(err, domain.ErrSessionExpired):
		return errors.New("session expired, run 'brain login' and try again")
	case errors.Is(err, domain.ErrNotFound):
		return fmt.Errorf("chat session %s not found", sessionID)
	default:
		return err
	}
}

// answerPrinter writes the growth of the streamed assistant message.
// It runs on the goroutine that streams the answer.
type answerPrinter struct {
	out       io.Writer
	sessionID string
	answerID  string
	printed   int
}

func (p *answerPrinter) handle(e domain.SessionEvent) {
	if e.Message == nil || e.Message.SessionID != p.sessionID {
		return
	}

	switch e.Type {
	case domain.EventMessageAppended:
		if e.Message.Role == domain.RoleAssistant {
			p.answerID = e.Message.ID
			p.printed = 0
		}
	case domain.EventMessageUpdated:
		if e.Message.ID != p.answerID || len(e.Message.Content) <= p.printed {
			return
		}
		fmt.Fprint(p.out, e.Message.Content[p.printed:])
		p.printed = len(e.Message.Content)
	}
}

func runChatSessions(cmd *cobra.Command, _ []string) error {
	if chatService == nil || authService == nil {
		return fmt.Errorf("chat service %w", errNotConfigured)
	}
	if _, err := restoreSession(cmd); err != nil {
		return err
	}

	sessions, err := chatService.Sessions(commandContext(cmd))
	if err != nil {
		return fmt.Errorf("list chat sessions: %w", err)
	}
	if len(sessions) == 0 {
		cmd.Println("No chat sessions.")
		return nil
	}

	t := table.New().
		Border(lipgloss.HiddenBorder()).
		Headers("ID", "TITLE", "UPDATED")
	for _, s := range sessions {
		title := s.Title
		if title == "" {
			title = "(untitled)"
		}
		t.Row(s.ID, title, s.UpdatedAt.Local().Format(time.DateTime))
	}
	cmd.Println(t.Render())
	return nil
}

func runChatHistory(cmd *cobra.Command, _ []string) error {
	if chatService == nil {
		return fmt.Errorf("chat service %w", errNotConfigured)
	}
	if chatSessionID == "" {
		return errors.New("--session is required")
	}

	messages, err := chatService.History(commandContext(cmd), chatSessionID)
	if err != nil {
		return fmt.Errorf("load history: %w", err)
	}
	if len(messages) == 0 {
		cmd.Println("No messages stored for this session.")
		return nil
	}

	for _, m := range messages {
		speaker := "you"
		if m.Role == domain.RoleAssistant {
			speaker = "brain"
		}
		cmd.Printf("[%s] %s: %s\n", m.CreatedAt.Local().Format(time.TimeOnly), speaker, m.Content)
	}
	return nil
}

func runChatClear(cmd *cobra.Command, _ []string) error {
	if chatService == nil {
		return fmt.Errorf("chat service %w", errNotConfigured)
	}
	if chatSessionID == "" {
		return errors.New("--session is required")
	}

	if err := chatService.Clear(commandContext(cmd), chatSessionID); err != nil {
		return fmt.Errorf("clear history: %w", err)
	}
	cmd.Printf("Cleared transcript of session %s.\n", chatSessionID)
	return nil
}

// titleFrom derives a session title from the first message.
func titleFrom(message string) string {
	const maxTitle = 40
	runes := []rune(message)
	if len(runes) <= maxTitle {
		return message
	}
	return strings.TrimSpace(string(runes[:maxTitle])) + "..."
}
