package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/dvloznov/finanai/internal/domain"
	"github.com/dvloznov/finanai/internal/extract"
	"github.com/dvloznov/finanai/internal/finance"
	"github.com/dvloznov/finanai/internal/identity"
	"github.com/dvloznov/finanai/internal/logger"
	"github.com/dvloznov/finanai/internal/store/localfile"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
)

// The CLI works in guest mode: the aggregate lives in a JSON file under
// the data directory, loaded before each command and saved after.

func main() {
	_ = godotenv.Load()
	log := logger.New()

	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	switch os.Args[1] {
	case "list":
		runList(log)
	case "add":
		runAdd(log)
	case "bill":
		runBill(log)
	case "pay":
		runPay(log)
	case "goal":
		runGoal(log)
	case "contribute":
		runContribute(log)
	case "check":
		runCheck(log)
	case "extract":
		runExtract(log)
	case "reset":
		runReset(log)
	case "help", "-h", "--help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", os.Args[1])
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println("FinanAI CLI")
	fmt.Println("\nUsage:")
	fmt.Println("  cli <command> [options]")
	fmt.Println("\nCommands:")
	fmt.Println("  list        Show transactions, bills, goals and the checklist")
	fmt.Println("  add         Record an income or expense")
	fmt.Println("  bill        Register a recurring bill")
	fmt.Println("  pay         Mark a bill as paid for a month")
	fmt.Println("  goal        Create a savings goal")
	fmt.Println("  contribute  Add money to a savings goal")
	fmt.Println("  check       Add an item to the shopping checklist")
	fmt.Println("  extract     Extract entries from free-form text with Gemini")
	fmt.Println("  reset       Erase all local data")
	fmt.Println("  help        Show this help message")
	fmt.Println("\nRun 'cli <command> -h' for more information on a command.")
}

func dataDir() string {
	if v := os.Getenv("DATA_DIR"); v != "" {
		return v
	}
	return ".finanai"
}

// load reads the guest aggregate from disk into a fresh service. Corrupt
// or missing data starts empty, matching the server's guest behavior.
func load(log zerolog.Logger) (*finance.Service, *localfile.Store) {
	local, err := localfile.New(dataDir())
	if err != nil {
		log.Fatal().Err(err).Str("dir", dataDir()).Msg("Failed to open data directory")
	}

	svc := finance.NewService()
	raw, ok, err := local.Get(identity.GuestKey)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to read data")
	}
	if ok {
		var doc map[string]interface{}
		if err := json.Unmarshal([]byte(raw), &doc); err != nil {
			log.Warn().Err(err).Msg("Stored data is corrupt - starting fresh")
		} else {
			svc.Dispatch(finance.SetState{Data: domain.Normalize(doc)})
		}
	}
	return svc, local
}

func save(log zerolog.Logger, svc *finance.Service, local *localfile.Store) {
	raw, err := json.Marshal(domain.AsDocument(svc.State()))
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to encode data")
	}
	if err := local.Set(identity.GuestKey, string(raw)); err != nil {
		log.Fatal().Err(err).Msg("Failed to save data")
	}
}

func runList(log zerolog.Logger) {
	svc, _ := load(log)
	state := svc.State()

	fmt.Printf("\n=== Transactions (%d) ===\n", len(state.Transactions))
	for _, tx := range state.Transactions {
		sign := "+"
		if tx.Kind == domain.KindExpense {
			sign = "-"
		}
		fmt.Printf("  %s%.2f  %-30s %s\n", sign, tx.Amount, tx.Description, tx.Category)
	}

	fmt.Printf("\n=== Bills (%d) ===\n", len(state.Bills))
	now := time.Now()
	for _, bill := range state.Bills {
		status := "unpaid"
		if bill.Paid(domain.MonthToken(now)) {
			status = "paid"
		}
		fmt.Printf("  %.2f  %-30s due day %d  [%s]  id=%s\n", bill.Amount, bill.Description, bill.DueDay, status, bill.ID)
	}

	fmt.Printf("\n=== Goals (%d) ===\n", len(state.Goals))
	for _, goal := range state.Goals {
		fmt.Printf("  %-30s %.2f / %.2f  id=%s\n", goal.Name, goal.CurrentAmount, goal.TargetAmount, goal.ID)
	}

	fmt.Printf("\n=== Checklist (%d) ===\n", len(state.Checklist))
	for _, item := range state.Checklist {
		mark := " "
		if item.Completed {
			mark = "x"
		}
		fmt.Printf("  [%s] %s  id=%s\n", mark, item.Text, item.ID)
	}
	fmt.Println()
}

func runAdd(log zerolog.Logger) {
	fs := flag.NewFlagSet("add", flag.ExitOnError)
	kind := fs.String("type", "expense", "Transaction type: income or expense")
	amount := fs.Float64("amount", 0, "Amount (positive)")
	description := fs.String("description", "", "What the money was for")
	category := fs.String("category", "", "Category label")
	fs.Parse(os.Args[2:])

	if *amount <= 0 {
		log.Fatal().Msg("Error: --amount must be positive")
	}
	k := domain.TransactionKind(*kind)
	if k != domain.KindIncome && k != domain.KindExpense {
		log.Fatal().Msg("Error: --type must be income or expense")
	}

	svc, local := load(log)
	tx := svc.AddTransaction(finance.TransactionInput{
		Kind:        k,
		Amount:      *amount,
		Description: *description,
		Category:    *category,
	})
	save(log, svc, local)

	fmt.Printf("Recorded %s of %.2f (id=%s)\n", *kind, *amount, tx.ID)
}

func runBill(log zerolog.Logger) {
	fs := flag.NewFlagSet("bill", flag.ExitOnError)
	description := fs.String("description", "", "Bill name")
	amount := fs.Float64("amount", 0, "Monthly amount")
	dueDay := fs.Int("due-day", 0, "Day of the month the bill is due (1-31)")
	fs.Parse(os.Args[2:])

	if *description == "" {
		log.Fatal().Msg("Error: --description is required")
	}
	if *dueDay < 1 || *dueDay > 31 {
		log.Fatal().Msg("Error: --due-day must be between 1 and 31")
	}

	svc, local := load(log)
	bill := svc.AddBill(finance.BillInput{Description: *description, Amount: *amount, DueDay: *dueDay})
	save(log, svc, local)

	fmt.Printf("Registered bill %q (id=%s)\n", *description, bill.ID)
}

func runPay(log zerolog.Logger) {
	fs := flag.NewFlagSet("pay", flag.ExitOnError)
	billID := fs.String("bill-id", "", "Bill ID (see 'cli list')")
	month := fs.String("month", "", "Month to mark paid, like 2024-05 (defaults to this month)")
	fs.Parse(os.Args[2:])

	if *billID == "" {
		log.Fatal().Msg("Error: --bill-id is required")
	}
	if *month == "" {
		*month = domain.MonthToken(time.Now())
	}
	if _, err := time.Parse("2006-01", *month); err != nil {
		log.Fatal().Msg("Error: --month must look like 2024-05")
	}

	svc, local := load(log)
	tx, err := svc.PayBill(*billID, *month)
	if err != nil {
		log.Fatal().Err(err).Msg("Payment failed")
	}
	save(log, svc, local)

	if tx == nil {
		fmt.Printf("Bill already paid for %s\n", *month)
		return
	}
	fmt.Printf("Paid %.2f for %s\n", tx.Amount, *month)
}

func runGoal(log zerolog.Logger) {
	fs := flag.NewFlagSet("goal", flag.ExitOnError)
	name := fs.String("name", "", "Goal name")
	target := fs.Float64("target", 0, "Target amount")
	fs.Parse(os.Args[2:])

	if *name == "" {
		log.Fatal().Msg("Error: --name is required")
	}
	if *target <= 0 {
		log.Fatal().Msg("Error: --target must be positive")
	}

	svc, local := load(log)
	goal := svc.AddGoal(finance.GoalInput{Name: *name, TargetAmount: *target})
	save(log, svc, local)

	fmt.Printf("Created goal %q (id=%s)\n", *name, goal.ID)
}

func runContribute(log zerolog.Logger) {
	fs := flag.NewFlagSet("contribute", flag.ExitOnError)
	goalID := fs.String("goal-id", "", "Goal ID (see 'cli list')")
	amount := fs.Float64("amount", 0, "Amount to add")
	fs.Parse(os.Args[2:])

	if *goalID == "" {
		log.Fatal().Msg("Error: --goal-id is required")
	}
	if *amount <= 0 {
		log.Fatal().Msg("Error: --amount must be positive")
	}

	svc, local := load(log)
	tx, err := svc.Contribute(*goalID, *amount)
	if err != nil {
		log.Fatal().Err(err).Msg("Contribution failed")
	}
	save(log, svc, local)

	fmt.Printf("Added %.2f to the goal (expense id=%s)\n", *amount, tx.ID)
}

func runCheck(log zerolog.Logger) {
	fs := flag.NewFlagSet("check", flag.ExitOnError)
	text := fs.String("text", "", "Item to add to the checklist")
	fs.Parse(os.Args[2:])

	if *text == "" {
		log.Fatal().Msg("Error: --text is required")
	}

	svc, local := load(log)
	item := svc.AddChecklistItem(*text)
	save(log, svc, local)

	fmt.Printf("Added %q to the checklist (id=%s)\n", *text, item.ID)
}

func runExtract(log zerolog.Logger) {
	fs := flag.NewFlagSet("extract", flag.ExitOnError)
	text := fs.String("text", "", "Free-form text, e.g. 'gastei 50 reais no mercado'")
	model := fs.String("model", extract.DefaultModelName, "Gemini model name")
	apply := fs.Bool("apply", false, "Record the extracted entries instead of just printing them")
	fs.Parse(os.Args[2:])

	if *text == "" {
		log.Fatal().Msg("Error: --text is required")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()
	ctx = logger.WithContext(ctx, log)

	entries, err := extract.ExtractAll(ctx, extract.NewGemini(*model), []string{*text})
	if err != nil {
		log.Fatal().Err(err).Msg("Extraction failed")
	}
	entries = extract.Valid(entries)
	if len(entries) == 0 {
		fmt.Println("Nothing recognized.")
		return
	}

	for _, e := range entries {
		switch e.Kind {
		case extract.KindTransaction:
			fmt.Printf("transaction  %s %.2f  %s (%s)\n", e.Direction, e.Amount, e.Description, e.Category)
		case extract.KindBill:
			fmt.Printf("bill         %.2f  %s, due day %d\n", e.Amount, e.Description, e.DueDay)
		}
	}

	if !*apply {
		fmt.Println("\nRe-run with --apply to record these entries.")
		return
	}

	svc, local := load(log)
	for _, e := range entries {
		switch e.Kind {
		case extract.KindTransaction:
			svc.AddTransaction(finance.TransactionInput{
				Kind:        e.Direction,
				Amount:      e.Amount,
				Description: e.Description,
				Category:    e.Category,
				Date:        e.Date,
			})
		case extract.KindBill:
			svc.AddBill(finance.BillInput{
				Description: e.Description,
				Amount:      e.Amount,
				DueDay:      e.DueDay,
			})
		}
	}
	save(log, svc, local)

	fmt.Printf("Recorded %d entries.\n", len(entries))
}

func runReset(log zerolog.Logger) {
	local, err := localfile.New(dataDir())
	if err != nil {
		log.Fatal().Err(err).Str("dir", dataDir()).Msg("Failed to open data directory")
	}
	if err := local.Remove(identity.GuestKey); err != nil {
		log.Fatal().Err(err).Msg("Failed to erase data")
	}
	fmt.Println("All local data erased.")
}
