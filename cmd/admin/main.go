package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/go-resty/resty/v2"
	logger "github.com/sirupsen/logrus"
	"github.com/urfave/cli"
)

// baseURLFlag/apiKeyFlag are shared by every command below: the admin CLI
// is a thin resty client against a running server's /internal/* surface
// rather than a second process re-wiring the whole decision engine, the
// way cmd/executor talked to a live exchange instead of reimplementing
// order routing in-process.
var (
	baseURLFlag = cli.StringFlag{Name: "base-url", Usage: "server base URL", Value: "http://localhost:9898"}
	apiKeyFlag  = cli.StringFlag{Name: "api-key", Usage: "X-API-Key admin secret", EnvVar: "API_KEY"}
)

func main() {
	app := cli.NewApp()
	app.Name = "Agent Arena Admin CLI"
	app.Usage = "operator commands for a running Agent Arena server"

	app.Commands = []cli.Command{
		resetCompetitionCMD,
		invokeParticipantsCMD,
		triggerInvocationCMD,
	}

	if err := app.Run(os.Args); err != nil {
		_, _ = fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

var resetCompetitionCMD = cli.Command{
	Name:      "reset-competition",
	Usage:     "reset a competition's participants and portfolios to their initial state",
	ArgsUsage: "",
	Flags: []cli.Flag{
		baseURLFlag,
		apiKeyFlag,
		cli.StringFlag{Name: "id", Usage: "competition ID", Required: true},
	},
	Action: resetCompetitionAction,
}

var invokeParticipantsCMD = cli.Command{
	Name:      "invoke-participants",
	Usage:     "fire an off-cycle decision tick for every active competition",
	ArgsUsage: "",
	Flags:     []cli.Flag{baseURLFlag, apiKeyFlag},
	Action:    invokeParticipantsAction,
}

var triggerInvocationCMD = cli.Command{
	Name:      "trigger-invocation",
	Usage:     "run a single decision round for one participant, outside their normal ticker",
	ArgsUsage: "",
	Flags: []cli.Flag{
		baseURLFlag,
		apiKeyFlag,
		cli.StringFlag{Name: "participant", Usage: "participant ID", Required: true},
	},
	Action: triggerInvocationAction,
}

func adminClient(c *cli.Context) *resty.Client {
	return resty.New().
		SetBaseURL(c.String("base-url")).
		SetHeader("X-API-Key", c.String("api-key"))
}

func resetCompetitionAction(c *cli.Context) error {
	body, err := json.Marshal(map[string]string{"competition_id": c.String("id")})
	if err != nil {
		return err
	}

	resp, err := adminClient(c).R().SetBody(body).Post("/internal/reset-competition")
	if err != nil {
		logger.WithError(err).Error("reset-competition request failed")
		return err
	}
	if resp.IsError() {
		return fmt.Errorf("reset-competition: server returned %d: %s", resp.StatusCode(), resp.String())
	}

	logger.Info("competition reset")
	return nil
}

func invokeParticipantsAction(c *cli.Context) error {
	resp, err := adminClient(c).R().Post("/internal/invoke-participants")
	if err != nil {
		logger.WithError(err).Error("invoke-participants request failed")
		return err
	}
	if resp.IsError() {
		return fmt.Errorf("invoke-participants: server returned %d: %s", resp.StatusCode(), resp.String())
	}

	logger.Info("decision tick fired for every active competition")
	return nil
}

func triggerInvocationAction(c *cli.Context) error {
	resp, err := adminClient(c).R().Post("/internal/trigger-invocation/" + c.String("participant"))
	if err != nil {
		logger.WithError(err).Error("trigger-invocation request failed")
		return err
	}
	if resp.IsError() {
		return fmt.Errorf("trigger-invocation: server returned %d: %s", resp.StatusCode(), resp.String())
	}

	logger.Info("decision round triggered")
	return nil
}
