package cli

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"letmeask/internal/roomview"
	"letmeask/internal/tui"
)

const signInTimeout = 5 * time.Minute

var errNotSignedIn = errors.New("you must be logged in; run: letmeask login")

func newRoomCommand(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "room <code>",
		Short: "Join a room and follow its questions live",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			s, err := opts.newSession(ctx, cmd, true)
			if err != nil {
				return err
			}
			defer s.Close()

			return tui.Run(ctx, tui.Dependencies{
				DB:        s.client,
				Provider:  s.provider,
				RoomID:    args[0],
				Clipboard: roomview.SystemClipboard{},
				Logger:    s.logger,
				Input:     cmd.InOrStdin(),
				Output:    cmd.OutOrStdout(),
			})
		},
	}
}

func newLoginCommand(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "login",
		Short: "Sign in with Google",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := opts.newSession(cmd.Context(), cmd, false)
			if err != nil {
				return err
			}
			defer s.Close()

			ctx, cancel := context.WithTimeout(cmd.Context(), signInTimeout)
			defer cancel()

			if err := s.provider.SignInWithGoogleProvider(ctx); err != nil {
				return fmt.Errorf("sign in: %w", err)
			}
			session, _ := s.provider.CurrentSession()
			fmt.Fprintf(cmd.OutOrStdout(), "Signed in as %s\n", session.Name)
			return nil
		},
	}
}

func newLogoutCommand(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Forget the saved sign in",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := opts.newSession(cmd.Context(), cmd, false)
			if err != nil {
				return err
			}
			defer s.Close()

			if err := s.provider.SignOut(cmd.Context()); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Signed out")
			return nil
		},
	}
}

func newCreateCommand(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "create <title>",
		Short: "Create a new room",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := opts.newSession(cmd.Context(), cmd, false)
			if err != nil {
				return err
			}
			defer s.Close()

			if _, ok := s.provider.CurrentSession(); !ok {
				return errNotSignedIn
			}

			room, err := s.client.CreateRoom(cmd.Context(), strings.Join(args, " "))
			if err != nil {
				return fmt.Errorf("create room: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Room %q created: %s\nJoin with: letmeask room %s\n", room.Title, room.RoomID, room.RoomID)
			return nil
		},
	}
}
