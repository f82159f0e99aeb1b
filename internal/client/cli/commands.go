package cli

import (
	"context"
	"errors"
	"fmt"

	gs "github.com/nakgoalgo/nakgo/internal/server/grpc"
	"google.golang.org/grpc/status"
)

var errNotLoggedIn = errors.New("not logged in")

// describe renders a call error with the server's public code when there
// is one.
func describe(err error) string {
	if reason := gs.ErrorReason(err); reason != "" {
		msg := fmt.Sprintf("%s: %s", reason, status.Convert(err).Message())
		if d := gs.RetryDelay(err); d > 0 {
			msg += fmt.Sprintf(" (retry in %s)", d)
		}
		return msg
	}
	return err.Error()
}

func (a *App) Ping(ctx context.Context) error {
	ctx, cancel := a.callContext(ctx)
	defer cancel()

	if err := a.client.Ping(ctx); err != nil {
		return err
	}
	fmt.Fprintln(a.out, "pong")
	return nil
}

func (a *App) Login(ctx context.Context, credential string) error {
	ctx, cancel := a.callContext(ctx)
	defer cancel()

	resp, err := a.client.Login(ctx, credential)
	if err != nil {
		return err
	}

	fields := resp.GetFields()
	a.accessToken = fields["token"].GetStringValue()
	a.refreshToken = fields["refreshToken"].GetStringValue()
	a.userName = fields["user"].GetStructValue().GetFields()["nickname"].GetStringValue()

	fmt.Fprintf(a.out, "Logged in as %s\n", a.userName)
	return nil
}

func (a *App) Verify(ctx context.Context) error {
	if !a.isLoggedIn() {
		return errNotLoggedIn
	}
	ctx, cancel := a.callContext(ctx)
	defer cancel()

	resp, err := a.client.Verify(gs.WithAccessToken(ctx, a.accessToken))
	if err != nil {
		return err
	}

	user := resp.GetFields()["user"].GetStructValue().GetFields()
	fmt.Fprintf(a.out, "Token valid: id=%.0f nickname=%s admin=%t\n",
		user["id"].GetNumberValue(), user["nickname"].GetStringValue(), user["isAdmin"].GetBoolValue())
	return nil
}

func (a *App) Refresh(ctx context.Context) error {
	if a.refreshToken == "" {
		return errNotLoggedIn
	}
	ctx, cancel := a.callContext(ctx)
	defer cancel()

	resp, err := a.client.Refresh(ctx, a.refreshToken)
	if err != nil {
		return err
	}

	fields := resp.GetFields()
	a.accessToken = fields["token"].GetStringValue()
	a.refreshToken = fields["refreshToken"].GetStringValue()
	fmt.Fprintln(a.out, "Tokens refreshed")
	return nil
}

// Logout ends the session on the server and forgets the local tokens.
func (a *App) Logout(ctx context.Context) error {
	if !a.isLoggedIn() {
		return errNotLoggedIn
	}
	ctx, cancel := a.callContext(ctx)
	defer cancel()

	if _, err := a.client.Logout(gs.WithAccessToken(ctx, a.accessToken), a.refreshToken); err != nil {
		return err
	}

	a.accessToken, a.refreshToken, a.userName = "", "", ""
	fmt.Fprintln(a.out, "Logged out")
	return nil
}
