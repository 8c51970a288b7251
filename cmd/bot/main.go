// workspace-bot is a chat front-end for Google Workspace account
// provisioning. It long-polls Telegram for commands, creates accounts through
// the Admin SDK, mails credentials via Gmail, and audits every request to a
// Google Sheet (with a local SQLite spool when the sheet is unreachable).
package main

import (
	"context"
	"encoding/json"
	"os"
	"os/signal"
	"syscall"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	admin "google.golang.org/api/admin/directory/v1"
	"google.golang.org/api/drive/v3"
	"google.golang.org/api/gmail/v1"
	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"

	"github.com/opsdesk/workspace-bot/internal/access"
	"github.com/opsdesk/workspace-bot/internal/audit"
	"github.com/opsdesk/workspace-bot/internal/config"
	"github.com/opsdesk/workspace-bot/internal/directory"
	"github.com/opsdesk/workspace-bot/internal/notify"
	"github.com/opsdesk/workspace-bot/internal/observability"
	"github.com/opsdesk/workspace-bot/internal/ops"
	"github.com/opsdesk/workspace-bot/internal/password"
	"github.com/opsdesk/workspace-bot/internal/services"
	"github.com/opsdesk/workspace-bot/internal/spool"
	"github.com/opsdesk/workspace-bot/internal/sysutil"
	"github.com/opsdesk/workspace-bot/internal/telegram"
)

// flushInterval is how often spooled audit rows are retried against the
// sheet.
const flushInterval = time.Minute

// version is stamped at build time via -ldflags "-X main.version=...".
var version = "dev"

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		boot := zerolog.New(os.Stderr)
		boot.Fatal().Err(err).Msg("configuration")
	}

	sysutil.SetLogLevel(cfg.LogLevel)
	log := sysutil.NewLogger(os.Stderr, cfg.LogPretty)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Tracing of the outbound provider calls; disabled unless OTEL_ENABLED.
	stopTracing, err := observability.Setup(ctx, cfg.OTEL, version)
	if err != nil {
		log.Fatal().Err(err).Msg("tracing setup")
	}

	// Workspace services: service account impersonating the admin.
	adminSvc, sheetsSvc, driveSvc, err := workspaceServices(ctx, cfg.Google)
	if err != nil {
		log.Fatal().Err(err).Msg("workspace client setup")
	}
	gmailSvc, err := gmailService(ctx, cfg.Gmail)
	if err != nil {
		log.Fatal().Err(err).Msg("gmail client setup")
	}

	dir := directory.NewGoogleClient(adminSvc, cfg.Google.Domain, cfg.DirectoryPageSize, cfg.ProviderTimeout, log)
	mailer := notify.NewGmailSender(gmailSvc, cfg.Gmail.SenderAddress, cfg.Gmail.SignatureLine, cfg.ProviderTimeout, log)

	sheetLog, err := audit.EnsureSink(ctx, sheetsSvc, driveSvc, cfg.SpreadsheetName, cfg.ProviderTimeout, log)
	if err != nil {
		log.Fatal().Err(err).Msg("audit sink setup")
	}
	store, err := spool.Open(cfg.SpoolPath)
	if err != nil {
		log.Fatal().Err(err).Msg("audit spool setup")
	}
	auditor := audit.NewSpooledLog(sheetLog, store, log)

	gate := access.NewGate(cfg.AllowedUsers)
	protected := access.NewProtectedSet(cfg.ProtectedAccounts)
	gen := password.New(password.WithLength(cfg.PasswordLength))

	prov := services.NewProvisionService(gate, dir, mailer, auditor, gen, cfg.Gmail.ReplyTo, log)
	accts := services.NewAccountService(gate, protected, dir, auditor, gen, log,
		services.WithPageRows(cfg.ListPageRows))

	api, err := tgbotapi.NewBotAPI(cfg.BotToken)
	if err != nil {
		log.Fatal().Err(err).Msg("bot init")
	}
	bot := telegram.NewBot(api, telegram.NewHandler(prov, accts, cfg.RateRPS, cfg.RateBurst, log), log)

	// Ready means the update poller is actually running.
	opsSrv := ops.NewServer(cfg.OpsAddr, bot.Ready, log)
	go func() {
		if err := opsSrv.Start(); err != nil {
			log.Error().Err(err).Msg("ops server")
		}
	}()

	go flushLoop(ctx, auditor, log)

	log.Info().
		Str("domain", cfg.Google.Domain).
		Int("allowed_users", gate.Len()).
		Int("protected_accounts", protected.Len()).
		Msg("starting")
	bot.Run(ctx)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := opsSrv.Shutdown(shutdownCtx); err != nil {
		log.Warn().Err(err).Msg("ops shutdown")
	}
	if err := stopTracing(shutdownCtx); err != nil {
		log.Warn().Err(err).Msg("tracing shutdown")
	}
	log.Info().Msg("stopped")
}

// flushLoop periodically replays spooled audit rows once the sheet is
// reachable again.
func flushLoop(ctx context.Context, auditor *audit.SpooledLog, log zerolog.Logger) {
	t := time.NewTicker(flushInterval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			auditor.Flush(ctx)
		}
	}
}

// workspaceServices builds the Admin SDK, Sheets, and Drive clients from a
// service-account key with domain-wide delegation.
func workspaceServices(ctx context.Context, cfg config.GoogleConfig) (*admin.Service, *sheets.Service, *drive.Service, error) {
	key, err := os.ReadFile(cfg.CredentialsFile)
	if err != nil {
		return nil, nil, nil, err
	}
	jwt, err := google.JWTConfigFromJSON(key,
		admin.AdminDirectoryUserScope,
		sheets.SpreadsheetsScope,
		drive.DriveScope,
	)
	if err != nil {
		return nil, nil, nil, err
	}
	jwt.Subject = cfg.AdminAccount

	// One authenticated, trace-instrumented client for all three services.
	hc := observability.InstrumentClient(oauth2.NewClient(ctx, jwt.TokenSource(ctx)))

	adminSvc, err := admin.NewService(ctx, option.WithHTTPClient(hc))
	if err != nil {
		return nil, nil, nil, err
	}
	sheetsSvc, err := sheets.NewService(ctx, option.WithHTTPClient(hc))
	if err != nil {
		return nil, nil, nil, err
	}
	driveSvc, err := drive.NewService(ctx, option.WithHTTPClient(hc))
	if err != nil {
		return nil, nil, nil, err
	}
	return adminSvc, sheetsSvc, driveSvc, nil
}

// gmailService builds the Gmail client from an OAuth client config plus a
// previously persisted user token.
func gmailService(ctx context.Context, cfg config.GmailConfig) (*gmail.Service, error) {
	creds, err := os.ReadFile(cfg.CredentialsFile)
	if err != nil {
		return nil, err
	}
	oc, err := google.ConfigFromJSON(creds, gmail.GmailSendScope)
	if err != nil {
		return nil, err
	}
	raw, err := os.ReadFile(cfg.TokenFile)
	if err != nil {
		return nil, err
	}
	tok := new(oauth2.Token)
	if err := json.Unmarshal(raw, tok); err != nil {
		return nil, err
	}
	hc := observability.InstrumentClient(oauth2.NewClient(ctx, oc.TokenSource(ctx, tok)))
	return gmail.NewService(ctx, option.WithHTTPClient(hc))
}
