package main

import (
	"context"
	"fmt"
	"io/ioutil"
	"time"

	"github.com/dgrijalva/jwt-go"
	"github.com/pkg/errors"

	echoapi "github.com/trezcool/fightlab/apps/api/echo"
	"github.com/trezcool/fightlab/core/entitlement"
)

func (cli *commandLine) reconcile(orderID string, status entitlement.Status) error {
	changed, err := cli.resolver.Resolve(context.Background(), orderID, status)
	if err != nil {
		return errors.Wrap(err, "resolving purchase")
	}
	if changed {
		fmt.Fprintf(cli.out, "order %s marked %s\n", orderID, status)
	} else {
		fmt.Fprintf(cli.out, "order %s left unchanged\n", orderID)
	}
	return nil
}

func (cli *commandLine) signWebhook(path, secret string) error {
	if secret == "" {
		secret = cli.conf.Payment.WebhookSecret
	}
	if secret == "" {
		return errors.New("no webhook secret given or configured")
	}
	body, err := ioutil.ReadFile(path)
	if err != nil {
		return errors.Wrap(err, "reading webhook payload")
	}
	fmt.Fprintf(cli.out, "%s: %s\n", cli.conf.Payment.SignatureHeader, entitlement.SignPayload(secret, body))
	return nil
}

func (cli *commandLine) token(sub, email, role string) error {
	if cli.conf.AuthSecret == "" {
		return errors.New("no auth secret configured")
	}
	now := time.Now()
	token, err := echoapi.GenerateToken(cli.conf.AuthSecret, &echoapi.Claims{
		StandardClaims: jwt.StandardClaims{
			Issuer:    cli.conf.AppName,
			Subject:   sub,
			IssuedAt:  now.Unix(),
			ExpiresAt: now.Add(24 * time.Hour).Unix(),
		},
		Email: email,
		Role:  role,
	})
	if err != nil {
		return err
	}
	fmt.Fprintln(cli.out, token)
	return nil
}
