// Package auth contains authentication descriptors for the request.Request.
//
// Each descriptor implements the request.Authentication interface,
// it modifies the *http.Request before the request is sent.
package auth

import (
	"errors"
	"fmt"
	"net/http"

	"golang.org/x/oauth2"
)

// BasicAuth sets the "Authorization: Basic ..." header.
type BasicAuth struct {
	Username string
	Password string
}

// BearerToken sets the "Authorization: Bearer ..." header.
type BearerToken struct {
	Token string
}

// APIToken sets a token to a custom header, for example "X-StorageApi-Token".
type APIToken struct {
	Header string
	Token  string
}

// TokenSource gets a token from the oauth2.TokenSource for each sent request.
type TokenSource struct {
	Source oauth2.TokenSource
}

func Basic(username, password string) BasicAuth {
	return BasicAuth{Username: username, Password: password}
}

func Bearer(token string) BearerToken {
	return BearerToken{Token: token}
}

func Token(header, token string) APIToken {
	return APIToken{Header: header, Token: token}
}

func OAuth2(src oauth2.TokenSource) TokenSource {
	return TokenSource{Source: src}
}

func (v BasicAuth) Authenticate(req *http.Request) error {
	req.SetBasicAuth(v.Username, v.Password)
	return nil
}

func (v BearerToken) Authenticate(req *http.Request) error {
	if v.Token == "" {
		return errors.New("bearer token is empty")
	}
	req.Header.Set("Authorization", "Bearer "+v.Token)
	return nil
}

func (v APIToken) Authenticate(req *http.Request) error {
	if v.Header == "" {
		return errors.New("token header name is empty")
	}
	if v.Token == "" {
		return fmt.Errorf(`token for header "%s" is empty`, v.Header)
	}
	req.Header.Set(v.Header, v.Token)
	return nil
}

func (v TokenSource) Authenticate(req *http.Request) error {
	if v.Source == nil {
		return errors.New("oauth2 token source is not set")
	}
	token, err := v.Source.Token()
	if err != nil {
		return fmt.Errorf("cannot get oauth2 token: %w", err)
	}
	if !token.Valid() {
		return errors.New("oauth2 token is not valid")
	}
	token.SetAuthHeader(req)
	return nil
}
