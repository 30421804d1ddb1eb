package service

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/golang-jwt/jwt/v5"
	"github.com/zlnvch/whiteboard/models"
)

const bearerPrefix = "Bearer "

// BearerToken strips the "Bearer " prefix. Values without it are returned as is.
func BearerToken(value string) string {
	return strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(value), bearerPrefix))
}

func (s *Service) VerifyJWT(tokenString string) (models.Identity, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (any, error) {
		return s.JWTSecret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return models.Identity{}, err
	}

	if !token.Valid {
		return models.Identity{}, errors.New("invalid token")
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return models.Identity{}, errors.New("invalid token claims")
	}

	userId, ok := claims["userId"].(string)
	if !ok || userId == "" {
		return models.Identity{}, errors.New("missing userId claim")
	}

	return models.Identity{UserId: userId}, nil
}

func (s *Service) AuthenticateToken(token string) (models.Identity, error) {
	token = BearerToken(token)
	if len(token) == 0 {
		return models.Identity{}, ErrMissingCredential
	}

	identity, err := s.VerifyJWT(token)
	if err != nil {
		return models.Identity{}, fmt.Errorf("%w: %v", ErrInvalidCredential, err)
	}

	return identity, nil
}

// CanAccess reports whether identity may view and edit canvas.
func CanAccess(identity models.Identity, canvas models.Canvas) bool {
	if identity.UserId == "" {
		return false
	}
	return canvas.Owner == identity.UserId || slices.Contains(canvas.Shared, identity.UserId)
}

// Authorize resolves the credential and checks it against the canvas owner and shared users.
func (s *Service) Authorize(ctx context.Context, credential string, canvasId string) (models.Identity, models.Canvas, error) {
	identity, err := s.AuthenticateToken(credential)
	if err != nil {
		return models.Identity{}, models.Canvas{}, err
	}

	canvas, err := s.LoadCanvas(ctx, canvasId)
	if err != nil {
		return identity, models.Canvas{}, err
	}

	if !CanAccess(identity, canvas) {
		return identity, models.Canvas{}, ErrNotAuthorized
	}

	return identity, canvas, nil
}
