// Package command implements the two CLI surfaces (backup, s3) sharing one
// flag vocabulary, logging setup, and object-store construction.
package command

import (
	"fmt"
	"os"

	"github.com/urfave/cli/v2"

	apperror "github.com/drinkcat/simple-serac/error"
	"github.com/drinkcat/simple-serac/log"
	"github.com/drinkcat/simple-serac/message"
	"github.com/drinkcat/simple-serac/objectstore/s3store"
)

// sigintExitCode follows the common shell convention of 128+signal for a
// run aborted by a signal, so callers (and operators) can tell "the backup
// itself failed" (exit 1) apart from "a signal aborted it between files"
// (exit 130) without parsing the message.
const sigintExitCode = 130

func errMessage(op string, err error) message.Error {
	return message.Error{Op: op, Err: err.Error()}
}

const defaultRetryCount = 10

// sharedFlags is the --endpoint-url/--profile/credentials/logging surface
// both binaries expose identically, so an operator's shell aliases work
// against either one.
func sharedFlags() []cli.Flag {
	return []cli.Flag{
		&cli.BoolFlag{
			Name:  "json",
			Usage: "enable JSON formatted output",
		},
		&cli.GenericFlag{
			Name: "log",
			Value: &EnumValue{
				Enum:    []string{"debug", "info", "warning", "error"},
				Default: "info",
			},
			Usage: "log level: (debug, info, warning, error)",
		},
		&cli.StringFlag{
			Name:    "endpoint-url",
			Usage:   "override default S3 host for custom services",
			EnvVars: []string{"S3_ENDPOINT_URL"},
		},
		&cli.StringFlag{
			Name:  "region",
			Usage: "AWS region for the bucket",
		},
		&cli.BoolFlag{
			Name:  "no-verify-ssl",
			Usage: "disable SSL certificate verification",
		},
		&cli.BoolFlag{
			Name:  "no-sign-request",
			Usage: "do not sign requests: credentials will not be loaded if --no-sign-request is provided",
		},
		&cli.StringFlag{
			Name:  "profile",
			Usage: "use the specified profile from the credentials file",
		},
		&cli.StringFlag{
			Name:  "credentials-file",
			Usage: "use the specified credentials file instead of the default credentials file",
		},
		&cli.IntFlag{
			Name:    "retry-count",
			Aliases: []string{"r"},
			Value:   defaultRetryCount,
			Usage:   "number of times a request will be retried for failures",
		},
	}
}

// Before is shared between both apps: it initializes the logger and
// rejects a no-sign-request/profile combination that can't be satisfied.
func before(c *cli.Context) error {
	log.Init(log.LevelFromString(c.String("log")), c.Bool("json"))

	if c.Bool("no-sign-request") && c.String("profile") != "" {
		err := fmt.Errorf(`"no-sign-request" and "profile" flags cannot be used together`)
		log.Error(errMessage(c.Command.Name, err))
		return err
	}
	if c.Int("retry-count") < 0 {
		err := fmt.Errorf("retry count cannot be a negative value")
		log.Error(errMessage(c.Command.Name, err))
		return err
	}
	return nil
}

func after(c *cli.Context) error {
	log.Close()
	return nil
}

// newObjectStoreOpts builds s3store.Options for url.Bucket from the shared
// flag surface.
func newObjectStoreOpts(c *cli.Context, url *remoteURL, dryRun bool) s3store.Options {
	return s3store.Options{
		Bucket:         url.Bucket,
		Region:         c.String("region"),
		Endpoint:       c.String("endpoint-url"),
		Profile:        c.String("profile"),
		CredentialFile: c.String("credentials-file"),
		NoSignRequest:  c.Bool("no-sign-request"),
		NoVerifySSL:    c.Bool("no-verify-ssl"),
		MaxRetries:     c.Int("retry-count"),
		DryRun:         dryRun,
	}
}

func fatal(c *cli.Context, err error) error {
	if err == nil {
		return nil
	}
	log.Error(errMessage(c.Command.Name, err))
	if apperror.IsCancelation(err) {
		return cli.Exit(err.Error(), sigintExitCode)
	}
	return cli.Exit(err.Error(), 1)
}

func printUsageError(appName string, c *cli.Context, err error, isSubcommand bool) error {
	if err != nil {
		fmt.Fprintf(os.Stderr, "Incorrect Usage: %s\n", err.Error())
		fmt.Fprintf(os.Stderr, "See '%s --help' for usage\n", appName)
		return err
	}
	return nil
}
