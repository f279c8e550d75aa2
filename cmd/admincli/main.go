// Package main provides the admin CLI entry point.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"strings"

	"github.com/alecthomas/kingpin/v2"
	"github.com/joho/godotenv"
	"google.golang.org/protobuf/types/known/structpb"

	apiconnect "github.com/osa030/wishcard/internal/api/connect"
	"github.com/osa030/wishcard/internal/domain/stage"
)

var (
	app    = kingpin.New("wishcard-admincli", "wishcard admin client")
	server = app.Flag("server", "Server address").Default("http://localhost:8080").String()
	token  = app.Flag("token", "Admin token (or set ADMIN_TOKEN env)").Envar("ADMIN_TOKEN").String()

	// force command
	forceCmd   = app.Command("force", "Jump directly to a stage")
	forceStage = forceCmd.Arg("stage", "Stage ("+strings.Join(stageNames(), ", ")+")").Required().Enum(stageNames()...)

	// reset command
	resetCmd = app.Command("reset", "Return the card to the unlock stage")
)

func stageNames() []string {
	names := make([]string, 0, len(stage.All()))
	for _, s := range stage.All() {
		names = append(names, s.String())
	}
	return names
}

func main() {
	// Load .env file if it exists (errors are ignored)
	_ = godotenv.Load()

	command := kingpin.MustParse(app.Parse(os.Args[1:]))

	if *token == "" {
		fmt.Println("Error: admin token is required (use --token or ADMIN_TOKEN env)")
		os.Exit(1)
	}

	client := apiconnect.NewAdminClient(http.DefaultClient, *server)
	ctx := context.Background()

	var (
		state *structpb.Struct
		err   error
	)
	switch command {
	case forceCmd.FullCommand():
		state, err = client.ForceStage(ctx, *token, *forceStage)
	case resetCmd.FullCommand():
		state, err = client.Reset(ctx, *token)
	}
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		os.Exit(1)
	}

	f := state.GetFields()
	fmt.Printf("Stage: %s\n", f["stage"].GetStringValue())
	fmt.Printf("Music: %s\n", f["music"].GetStringValue())
	fmt.Printf("Run ID: %s\n", f["run_id"].GetStringValue())
}
