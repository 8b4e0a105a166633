package rewardclient

import (
	"context"
	"net/http"
	"time"

	"reward-core/internal/model"
	"reward-core/pkg/errno"
	"reward-core/pkg/session"
	"reward-core/pkg/validator"
)

// Login exchanges email/password for an access token and stores it.
func (c *Client) Login(ctx context.Context, email, password string) (*model.LoginResponse, error) {
	req := model.LoginRequest{Email: email, Password: password}
	if err := validator.Struct(req); err != nil {
		return nil, errno.ErrBind.WithMessage(validator.GetErrorMsg(err))
	}

	body, err := c.do(ctx, call{
		endpoint: "auth.login",
		method:   http.MethodPost,
		path:     "/auth/login/",
		body:     req,
	})
	if err != nil {
		return nil, err
	}

	var resp model.LoginResponse
	if err := decodeObject(body, &resp); err != nil {
		return nil, err
	}
	if !session.TokenLooksValid(resp.Access) {
		return nil, errno.ErrTokenInvalid
	}

	if c.store != nil {
		creds := &session.Credentials{
			AccessToken:  resp.Access,
			RefreshToken: resp.Refresh,
			Email:        resp.User.Email,
			Role:         resp.User.Role,
			SavedAt:      time.Now().UTC(),
		}
		if creds.Email == "" {
			creds.Email = email
		}
		if err := c.store.Save(ctx, creds); err != nil {
			return nil, err
		}
	}
	return &resp, nil
}

// Logout forgets the stored credentials. The backend keeps no server side session.
func (c *Client) Logout(ctx context.Context) error {
	if c.store == nil {
		return nil
	}
	return c.store.Clear(ctx)
}

// Session returns the stored credentials when they look usable.
func (c *Client) Session(ctx context.Context) (*session.Credentials, error) {
	if c.store == nil {
		return nil, errno.ErrNoSession
	}
	creds, err := c.store.Load(ctx)
	if err != nil || !session.TokenLooksValid(creds.AccessToken) {
		return nil, errno.ErrNoSession
	}
	return creds, nil
}
