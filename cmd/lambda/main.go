// Command lambda runs one scrape and store batch per invocation. It is
// meant for a scheduled trigger; configuration comes from the environment
// exactly as for the CLI.
package main

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-lambda-go/lambda"

	"github.com/deusflow/lankanews/internal/app"
	"github.com/deusflow/lankanews/internal/config"
	"github.com/deusflow/lankanews/internal/logger"
)

type Response struct {
	StatusCode int    `json:"statusCode"`
	Message    string `json:"message"`
	Scraped    int    `json:"scraped"`
	Inserted   int    `json:"inserted"`
	Skipped    int    `json:"skipped"`
}

func Handler(ctx context.Context, event interface{}) (Response, error) {
	logger.Info("Starting lankanews Lambda...")

	cfg, err := config.Load()
	if err != nil {
		return Response{StatusCode: 400, Message: err.Error()}, err
	}

	a, err := app.New(ctx, cfg, logger.Logger)
	if err != nil {
		return Response{StatusCode: 500, Message: err.Error()}, err
	}
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := a.Close(closeCtx); err != nil {
			logger.Warn("close failed", "error", err)
		}
	}()

	rep, err := a.RunOnce(ctx)
	if err != nil {
		return Response{StatusCode: 500, Message: err.Error(), Scraped: rep.Input}, err
	}

	return Response{
		StatusCode: 200,
		Message:    fmt.Sprintf("Stored %d records, skipped %d", rep.Inserted, rep.Skipped),
		Scraped:    rep.Input,
		Inserted:   rep.Inserted,
		Skipped:    rep.Skipped,
	}, nil
}

func main() {
	logger.Init()
	lambda.Start(Handler)
}
