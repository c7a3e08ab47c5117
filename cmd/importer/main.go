package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/mfortes/fincasa-backend/internal/adapter/repository/postgres"
	"github.com/mfortes/fincasa-backend/internal/config"
	"github.com/mfortes/fincasa-backend/internal/usecase/importer"
)

func main() {
	accountFlag := flag.String("account", "", "account ID to import into, skipping IBAN resolution")
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "Usage: %s [flags] <statement.csv>\n", os.Args[0])
		flag.PrintDefaults()
	}
	flag.Parse()

	if flag.NArg() != 1 {
		flag.Usage()
		os.Exit(2)
	}
	filePath := flag.Arg(0)

	log := logrus.New()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	level, err := logrus.ParseLevel(cfg.LogLevel)
	if err != nil {
		log.Fatalf("Invalid log level %q: %v", cfg.LogLevel, err)
	}
	log.SetLevel(level)

	pipelineCfg, err := config.LoadPipeline(cfg.PipelineFile)
	if err != nil {
		log.Fatalf("Failed to load pipeline configuration: %v", err)
	}

	var accountID *uuid.UUID
	if *accountFlag != "" {
		id, err := uuid.Parse(*accountFlag)
		if err != nil {
			log.Fatalf("Invalid account ID %q: %v", *accountFlag, err)
		}
		accountID = &id
	}

	db, err := postgres.NewDB(cfg.ConnString())
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	accountRepo := postgres.NewAccountRepository(db)
	movementRepo := postgres.NewMovementRepository(db)
	budgetRepo := postgres.NewBudgetLineRepository(db)
	importLogRepo := postgres.NewImportLogRepository(db)

	service := importer.NewService(accountRepo, movementRepo, budgetRepo, importLogRepo, pipelineCfg, log)

	file, err := os.Open(filePath)
	if err != nil {
		log.Fatalf("Failed to open statement file: %v", err)
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil {
		log.Fatalf("Failed to stat statement file: %v", err)
	}

	result, err := service.Run(context.Background(), importer.ImportInput{
		FileName:  info.Name(),
		FileSize:  info.Size(),
		Reader:    file,
		AccountID: accountID,
	})
	if err != nil {
		log.Fatalf("Import failed: %v", err)
	}

	if result.RequiresAccountSelection {
		fmt.Println("No single account matched the statement. Re-run with -account <id>:")
		for _, a := range result.AccountCandidates {
			fmt.Printf("  %s  %s (%s)\n", a.ID, a.Name, a.IBAN)
		}
		os.Exit(3)
	}

	fmt.Println(result.Summary.String())
	if result.Summary.Transfers > 0 {
		fmt.Printf("Traspasos detectados: %d\n", result.Summary.Transfers)
	}
	for _, lineErr := range result.Log.LineErrors {
		fmt.Printf("  línea %d: %s\n", lineErr.Line, lineErr.Reason)
	}
}
