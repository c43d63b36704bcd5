package cmd

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/gorilla/websocket"
	"github.com/nfrund/parley/internal/chat"
	"github.com/spf13/cobra"
)

var (
	connectURL    string
	connectRoom   string
	connectUser   string
	connectHeader string
)

var connectCmd = &cobra.Command{
	Use:   "connect",
	Short: "Chat in a room from the terminal",
	Long: `Open a chat socket to a running server. History is printed on join,
then live messages as they arrive. Every line typed on stdin is sent.

The user is identified through the server's trusted header
(AUTH_TRUSTED_HEADER), so this only works against servers that have it set.

Examples:
  parley-cli connect --url ws://localhost:8080 --room 01J9Z6... --user 1`,
	RunE: func(cmd *cobra.Command, args []string) error {
		target, err := url.Parse(connectURL)
		if err != nil {
			return fmt.Errorf("invalid --url: %w", err)
		}
		target.Path = strings.TrimSuffix(target.Path, "/") + "/ws/chat/" + url.PathEscape(connectRoom)

		header := http.Header{}
		header.Set(connectHeader, connectUser)
		conn, resp, err := websocket.DefaultDialer.DialContext(cmd.Context(), target.String(), header)
		if err != nil {
			if resp != nil {
				return fmt.Errorf("dial %s: %w (HTTP %d)", target, err, resp.StatusCode)
			}
			return fmt.Errorf("dial %s: %w", target, err)
		}
		defer conn.Close()

		return runChat(conn, os.Stdin, cmd.OutOrStdout(), connectUser)
	},
}

// runChat pumps in to the socket and socket frames to out until either side ends.
func runChat(conn *websocket.Conn, in io.Reader, out io.Writer, userID string) error {
	done := make(chan error, 1)
	go func() {
		for {
			_, data, err := conn.ReadMessage()
			if err != nil {
				if websocket.IsCloseError(err, websocket.ClosePolicyViolation) {
					done <- fmt.Errorf("server refused the room: %w", err)
				} else if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
					done <- nil
				} else {
					done <- err
				}
				return
			}
			printFrame(out, data)
		}
	}()

	interrupt := make(chan os.Signal, 1)
	signal.Notify(interrupt, os.Interrupt)
	defer signal.Stop(interrupt)

	lines := make(chan string)
	go func() {
		scanner := bufio.NewScanner(in)
		for scanner.Scan() {
			lines <- scanner.Text()
		}
		close(lines)
	}()

	for {
		select {
		case err := <-done:
			return err
		case line, ok := <-lines:
			if !ok {
				return closeChat(conn, done)
			}
			if strings.TrimSpace(line) == "" {
				continue
			}
			frame, _ := json.Marshal(chat.InboundMessage{Message: line, SenderID: userID})
			if err := conn.WriteMessage(websocket.TextMessage, frame); err != nil {
				return err
			}
		case <-interrupt:
			return closeChat(conn, done)
		}
	}
}

func closeChat(conn *websocket.Conn, done <-chan error) error {
	msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "bye")
	if err := conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(time.Second)); err != nil {
		return err
	}
	select {
	case <-done:
	case <-time.After(time.Second):
	}
	return nil
}

func printFrame(out io.Writer, data []byte) {
	var probe struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(data, &probe); err != nil {
		fmt.Fprintf(out, "? %s\n", data)
		return
	}
	switch probe.Type {
	case chat.TypeChatMessage:
		var m chat.OutboundMessage
		_ = json.Unmarshal(data, &m)
		fmt.Fprintf(out, "[%s] %s: %s\n", m.Timestamp, m.SenderUsername, m.Message)
	case chat.TypeError:
		var e chat.ErrorFrame
		_ = json.Unmarshal(data, &e)
		fmt.Fprintf(out, "! %s: %s\n", e.Error, e.Message)
	default:
		fmt.Fprintf(out, "%s\n", data)
	}
}

func init() {
	connectCmd.Flags().StringVar(&connectURL, "url", "ws://localhost:8080", "server base URL")
	connectCmd.Flags().StringVar(&connectRoom, "room", "", "room id (required)")
	connectCmd.Flags().StringVar(&connectUser, "user", "", "user id to connect as (required)")
	connectCmd.Flags().StringVar(&connectHeader, "header", "X-User-ID", "trusted identity header name")
	_ = connectCmd.MarkFlagRequired("room")
	_ = connectCmd.MarkFlagRequired("user")
	rootCmd.AddCommand(connectCmd)
}
