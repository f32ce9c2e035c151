package auth

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"contacts-api/internal/mail"
)

// ConfirmPath is the route prefix of confirmation links.
const ConfirmPath = "/api/auth/confirmed_email/"

// VerificationSender accepts messages for background delivery.
type VerificationSender interface {
	Enqueue(msg mail.VerificationMessage)
}

type ConfirmResult struct {
	Message          string `json:"message"`
	AlreadyConfirmed bool   `json:"-"`
}

// VerificationFlow moves a user from unconfirmed to confirmed. The
// transition happens once; later confirmations succeed without changes.
type VerificationFlow struct {
	store      UserStore
	tokens     *TokenCodec
	sender     VerificationSender
	baseURL    string
	errHandler func(error)
}

func NewVerificationFlow(store UserStore, tokens *TokenCodec, sender VerificationSender, baseURL string, errHandler func(error)) *VerificationFlow {
	if errHandler == nil {
		errHandler = func(error) {}
	}
	return &VerificationFlow{
		store:      store,
		tokens:     tokens,
		sender:     sender,
		baseURL:    baseURL,
		errHandler: errHandler,
	}
}

func (f *VerificationFlow) IssueVerification(email string) (string, error) {
	token, err := f.tokens.Encode(TokenEmailVerification, email)
	if err != nil {
		return "", fmt.Errorf("issue verification token: %w", err)
	}
	return token, nil
}

func (f *VerificationFlow) Confirm(ctx context.Context, token string) (ConfirmResult, error) {
	claims, err := f.tokens.Decode(TokenEmailVerification, token)
	if err != nil {
		return ConfirmResult{}, badRequest(MsgVerificationError, err)
	}

	user, err := f.store.FindByEmail(ctx, claims.Subject)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return ConfirmResult{}, badRequest(MsgVerificationError, err)
		}
		return ConfirmResult{}, internalError(err)
	}

	if user.Confirmed {
		return ConfirmResult{Message: MsgAlreadyConfirmed, AlreadyConfirmed: true}, nil
	}

	user.Confirmed = true
	if err := f.store.Update(ctx, user); err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return ConfirmResult{}, badRequest(MsgVerificationError, err)
		}
		return ConfirmResult{}, internalError(err)
	}

	return ConfirmResult{Message: MsgEmailConfirmed}, nil
}

// RequestReverification answers the same way for unknown and unconfirmed
// addresses, so the response does not reveal whether an account exists.
func (f *VerificationFlow) RequestReverification(ctx context.Context, email string) (string, error) {
	email = strings.TrimSpace(email)
	if email == "" {
		return MsgCheckEmail, nil
	}

	user, err := f.store.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return MsgCheckEmail, nil
		}
		return "", internalError(err)
	}

	if user.Confirmed {
		return MsgAlreadyConfirmed, nil
	}

	f.sendVerification(user)
	return MsgCheckEmail, nil
}

// sendVerification never fails the caller; problems go to the error handler.
func (f *VerificationFlow) sendVerification(user User) {
	token, err := f.IssueVerification(user.Email)
	if err != nil {
		f.errHandler(err)
		return
	}

	link, err := url.JoinPath(f.baseURL, ConfirmPath, token)
	if err != nil {
		f.errHandler(fmt.Errorf("build confirmation link: %w", err))
		return
	}

	f.sender.Enqueue(mail.VerificationMessage{
		Email:    user.Email,
		Username: user.Username,
		Link:     link,
	})
}
