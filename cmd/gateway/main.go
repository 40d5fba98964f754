package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	api "github.com/Posologia-Edu/prova-facil/internal/api/http"
	auth "github.com/Posologia-Edu/prova-facil/internal/auth/middleware"
	"github.com/Posologia-Edu/prova-facil/internal/bank"
	"github.com/Posologia-Edu/prova-facil/internal/blueprint"
	"github.com/Posologia-Edu/prova-facil/internal/config"
	"github.com/Posologia-Edu/prova-facil/internal/db"
	"github.com/Posologia-Edu/prova-facil/internal/exam"
	"github.com/Posologia-Edu/prova-facil/internal/grading"
	"github.com/Posologia-Edu/prova-facil/internal/llm"
	"github.com/Posologia-Edu/prova-facil/internal/outbox"
	"github.com/Posologia-Edu/prova-facil/internal/rbac"
	"github.com/Posologia-Edu/prova-facil/internal/realtime"
)

func main() {
	root := &cobra.Command{
		Use:   "gateway",
		Short: "Prova Fácil exam authoring and grading server",
		RunE:  runServe,
	}
	root.AddCommand(
		&cobra.Command{
			Use:   "serve",
			Short: "Start the HTTP server",
			RunE:  runServe,
		},
		useraddCmd(),
		&cobra.Command{
			Use:   "sweep",
			Short: "Run the trash purge once and exit",
			RunE:  runSweep,
		},
	)
	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

func newLogger(level string) (*zap.Logger, error) {
	zcfg := zap.NewProductionConfig()
	if err := zcfg.Level.UnmarshalText([]byte(level)); err != nil {
		return nil, err
	}
	return zcfg.Build()
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	log, err := newLogger(cfg.LogLevel)
	if err != nil {
		return err
	}
	defer log.Sync()

	ctx, cancel := context.WithTimeout(cmd.Context(), 10*time.Second)
	defer cancel()
	dbh, err := db.Open(ctx, db.Driver(cfg.DBDriver), cfg.DBDSN)
	if err != nil {
		return fmt.Errorf("db open: %w", err)
	}

	bankStore := bank.NewSQLStore(dbh)
	bpStore := blueprint.NewSQLStore(dbh)
	examStore := exam.NewSQLStore(dbh)

	hub := realtime.NewHub(realtime.NewEventRepo(dbh), realtime.NewBroker(), log)
	svc := exam.NewService(examStore, bankStore, grading.NewGrader(), hub, log)

	llmClient := llm.New(cfg.LLMBaseURL, cfg.LLMAPIKey, cfg.LLMModel)
	generator := bank.NewGenerator(llmClient, log)
	aiGrader := exam.NewAIGrader(examStore, bankStore, llmClient, hub, log)

	// Subjective grading runs off the durable outbox, not the browser.
	workerCtx, stopWorker := context.WithCancel(context.Background())
	defer stopWorker()
	go outbox.NewWorker(dbh, aiGrader, cfg.OutboxInterval, log).Run(workerCtx)

	sweeper := bank.NewSweeper(bankStore, cfg.TrashRetention, log)
	if err := sweeper.Start(); err != nil {
		return fmt.Errorf("sweeper: %w", err)
	}
	defer sweeper.Stop()

	authSvc := auth.NewAuthService(cfg.AuthSecret)
	users := auth.NewUserStore(dbh)

	r := chi.NewRouter()
	r.Use(middleware.RequestID, middleware.RealIP, middleware.Logger, middleware.Recoverer)
	r.Use(middleware.Timeout(30 * time.Second))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Post("/auth/login", auth.LoginHandler(authSvc, users))

	r.Group(func(pr chi.Router) {
		pr.Use(auth.JWTMiddleware(authSvc))

		// Question bank (teacher)
		pr.With(rbac.Require("bank:create")).Post("/bank-items", api.PutBankItemHandler(bankStore))
		pr.With(rbac.Require("bank:create")).Put("/bank-items/{itemID}", api.PutBankItemHandler(bankStore))
		pr.With(rbac.Require("bank:view")).Get("/bank-items", api.ListBankItemsHandler(bankStore))
		pr.With(rbac.Require("bank:view")).Get("/bank-items/{itemID}", api.GetBankItemHandler(bankStore))
		pr.With(rbac.Require("bank:trash")).Delete("/bank-items/trash", api.EmptyTrashHandler(bankStore))
		pr.With(rbac.Require("bank:trash")).Delete("/bank-items/{itemID}", api.TrashBankItemHandler(bankStore))
		pr.With(rbac.Require("bank:trash")).Post("/bank-items/{itemID}/restore", api.RestoreBankItemHandler(bankStore))
		pr.With(rbac.Require("bank:generate")).Post("/bank-items/generate", api.GenerateBankItemsHandler(generator))

		// Exam blueprints (teacher)
		pr.With(rbac.Require("exam:create")).Post("/exams", api.PutBlueprintHandler(bpStore))
		pr.With(rbac.Require("exam:create")).Put("/exams/{examID}", api.PutBlueprintHandler(bpStore))
		pr.With(rbac.Require("exam:view")).Get("/exams", api.ListBlueprintsHandler(bpStore))
		pr.With(rbac.Require("exam:view")).Get("/exams/{examID}", api.GetBlueprintHandler(bpStore))
		pr.With(rbac.Require("exam:delete")).Delete("/exams/{examID}", api.DeleteBlueprintHandler(bpStore))
		pr.With(rbac.Require("exam:create")).Post("/exams/{examID}/sections", api.AddSectionHandler(bpStore))
		pr.With(rbac.Require("exam:create")).Post("/exams/{examID}/sections/{sectionID}/questions", api.AddQuestionHandler(bpStore, bankStore))
		pr.With(rbac.Require("exam:create")).Delete("/exams/{examID}/sections/{sectionID}/questions/{refID}", api.RemoveQuestionHandler(bpStore))
		pr.With(rbac.Require("exam:print")).Get("/exams/{examID}/print", api.PrintBlueprintHandler(bpStore, bankStore))

		// Publications (teacher)
		pr.With(rbac.Require("publication:create")).Post("/exams/{examID}/publish", api.PublishExamHandler(svc, bpStore))
		pr.With(rbac.Require("publication:manage")).Get("/publications", api.ListPublicationsHandler(svc))
		pr.With(rbac.Require("publication:manage")).Post("/publications/{publicationID}/close", api.ClosePublicationHandler(svc))
		pr.With(rbac.Require("session:view-all")).Get("/publications/{publicationID}/sessions", api.ListPublicationSessionsHandler(svc))
		pr.With(rbac.Require("session:monitor")).Get("/publications/{publicationID}/monitor", realtime.SSEHandler(hub.Broker()))

		// Student flow
		pr.With(rbac.Require("session:enter")).Post("/sessions", api.EnterExamHandler(svc))
		pr.With(rbac.RequireAny("session:view-own", "session:view-all")).Get("/sessions/{sessionID}", api.GetSessionHandler(svc))
		pr.With(rbac.RequireAny("session:view-own", "session:view-all")).Get("/sessions/{sessionID}/summary", api.SessionSummaryHandler(svc))
		pr.With(rbac.Require("session:answer")).Put("/sessions/{sessionID}/answers/{questionID}", api.SaveAnswerHandler(svc))
		pr.With(rbac.Require("session:submit")).Post("/sessions/{sessionID}/submit", api.SubmitSessionHandler(svc))

		// Grading review (teacher)
		pr.With(rbac.Require("grading:view")).Get("/sessions/{sessionID}/answers", api.GetSessionAnswersHandler(svc))
		pr.With(rbac.Require("grading:override")).Post("/sessions/{sessionID}/answers/{questionID}/grade", api.TeacherGradeHandler(svc))
		pr.With(rbac.Require("grading:override")).Post("/sessions/{sessionID}/recompute", api.RecomputeSessionHandler(svc))
	})

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(200) })
	r.Get("/readyz", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(200) })

	log.Info("listening", zap.String("addr", cfg.HTTPAddr), zap.String("db", cfg.DBDriver))
	return http.ListenAndServe(cfg.HTTPAddr, r)
}

func useraddCmd() *cobra.Command {
	var role string
	cmd := &cobra.Command{
		Use:   "useradd <username> <password>",
		Short: "Create a local user",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), 10*time.Second)
			defer cancel()
			dbh, err := db.Open(ctx, db.Driver(cfg.DBDriver), cfg.DBDSN)
			if err != nil {
				return err
			}
			users := auth.NewUserStore(dbh)
			id, err := users.Create(ctx, args[0], args[1], role)
			if err != nil {
				return err
			}
			fmt.Printf("created user %s (%s)\n", id, role)
			return nil
		},
	}
	cmd.Flags().StringVar(&role, "role", "teacher", "user role (student, teacher, admin)")
	return cmd
}

func runSweep(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	log, err := newLogger(cfg.LogLevel)
	if err != nil {
		return err
	}
	defer log.Sync()
	ctx, cancel := context.WithTimeout(cmd.Context(), time.Minute)
	defer cancel()
	dbh, err := db.Open(ctx, db.Driver(cfg.DBDriver), cfg.DBDSN)
	if err != nil {
		return err
	}
	return bank.NewSweeper(bank.NewSQLStore(dbh), cfg.TrashRetention, log).SweepOnce(ctx)
}
