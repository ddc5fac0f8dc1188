package main

import (
	"context"
	"fmt"

	"github.com/bayanforecast/stormwatch/internal/app"
)

func main() {
	application, err := app.New()
	if err != nil {
		panic(fmt.Sprintf("failed to initialize application: %v", err))
	}

	ctx := context.Background()
	if err := application.Start(ctx); err != nil {
		panic(fmt.Sprintf("failed to start application: %v", err))
	}

	application.WaitForShutdown()
	application.Stop()
}
