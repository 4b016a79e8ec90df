package main

import (
	"context"
	"database/sql"
	"errors"
	"flag"
	"fmt"
	"io"
	"syscall"

	"github.com/pressly/goose/v3"
	"golang.org/x/term"

	"github.com/trezcool/fightlab/core"
	"github.com/trezcool/fightlab/core/entitlement"
)

var (
	readPasswordFunc = term.ReadPassword // mockable
	gooseRunFunc     = goose.Run         // mockable

	errHelp = errors.New("help provided")
)

// purchaseResolver settles purchases by hand when a webhook was lost.
type purchaseResolver interface {
	Resolve(ctx context.Context, orderID string, status entitlement.Status) (bool, error)
}

type commandLine struct {
	conf     *core.Config
	db       *sql.DB
	resolver purchaseResolver
	out      io.Writer
}

func (cli *commandLine) printUsage() {
	fmt.Fprintln(cli.out, "Usage:")
	fmt.Fprintln(cli.out, "  migrate COMMAND [ARGS]                          - run a goose migration command (up, down, status...)")
	fmt.Fprintln(cli.out, "  reconcile -order ORDER_ID -status STATUS        - settle a purchase as completed|failed")
	fmt.Fprintln(cli.out, "  sign-webhook -file PATH                         - print the signature of a webhook payload")
	fmt.Fprintln(cli.out, "  token -sub USER_ID [-email EMAIL] [-role ROLE]  - print a signed API token (dev only)")
}

func (cli *commandLine) run(args []string) error {
	if len(args) < 2 {
		cli.printUsage()
		return errHelp
	}

	reconcileCmd := flag.NewFlagSet("reconcile", flag.ContinueOnError)
	reconcileCmd.SetOutput(cli.out)
	reconcileOrder := reconcileCmd.String("order", "", "The provider order id.")
	reconcileStatus := reconcileCmd.String("status", "", "The final status: completed or failed.")

	signCmd := flag.NewFlagSet("sign-webhook", flag.ContinueOnError)
	signCmd.SetOutput(cli.out)
	signFile := signCmd.String("file", "", "The raw webhook body. The secret will be prompted next; leave blank to use the configured one.")

	tokenCmd := flag.NewFlagSet("token", flag.ContinueOnError)
	tokenCmd.SetOutput(cli.out)
	tokenSub := tokenCmd.String("sub", "", "The user id.")
	tokenEmail := tokenCmd.String("email", "", "The user email.")
	tokenRole := tokenCmd.String("role", "user", "The user role: user, instructor or admin.")

	switch args[1] {
	case "migrate":
		if len(args) < 3 {
			cli.printUsage()
			return errHelp
		}
		return cli.migrate(args[2:])

	case "reconcile":
		if err := reconcileCmd.Parse(args[2:]); err != nil {
			return err
		}
		if *reconcileOrder == "" || *reconcileStatus == "" {
			reconcileCmd.Usage()
			return errHelp
		}
		return cli.reconcile(*reconcileOrder, entitlement.Status(*reconcileStatus))

	case "sign-webhook":
		if err := signCmd.Parse(args[2:]); err != nil {
			return err
		}
		if *signFile == "" {
			signCmd.Usage()
			return errHelp
		}
		fmt.Fprint(cli.out, "Enter webhook secret:")
		secret, err := readPasswordFunc(int(syscall.Stdin))
		fmt.Fprintln(cli.out)
		if err != nil {
			return err
		}
		return cli.signWebhook(*signFile, string(secret))

	case "token":
		if err := tokenCmd.Parse(args[2:]); err != nil {
			return err
		}
		if *tokenSub == "" {
			tokenCmd.Usage()
			return errHelp
		}
		return cli.token(*tokenSub, *tokenEmail, *tokenRole)

	default:
		cli.printUsage()
		return errHelp
	}
}
