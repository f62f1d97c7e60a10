package api

import (
	"context"
	"net/http"

	"communityhub/model"
)

func (c *Client) SendOTP(ctx context.Context, req model.OTPRequest) error {
	return c.do(ctx, http.MethodPost, "/auth/send-otp", req, nil)
}

// VerifyOTP exchanges a one-time code for a session and keeps its token.
func (c *Client) VerifyOTP(ctx context.Context, req model.OTPVerify) (model.Session, error) {
	var session model.Session
	if err := c.do(ctx, http.MethodPost, "/auth/verify-otp", req, &session); err != nil {
		return session, err
	}
	c.SetToken(session.Token)
	return session, nil
}

func (c *Client) Me(ctx context.Context) (model.Profile, error) {
	var profile model.Profile
	err := c.do(ctx, http.MethodGet, "/auth/me", nil, &profile)
	return profile, err
}

func (c *Client) Logout(ctx context.Context) error {
	err := c.do(ctx, http.MethodPost, "/auth/logout", nil, nil)
	c.SetToken("")
	return err
}
