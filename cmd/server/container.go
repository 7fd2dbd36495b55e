// cmd/server/container.go
//
// Root composition root. Owns infrastructure (DB, Redis, FS, job queue) and
// wires the bounded contexts together. This is the only place that knows
// about ALL modules.
package main

import (
	"context"

	"github.com/Abraxas-365/manifesto/pkg/ai/llm"
	"github.com/Abraxas-365/manifesto/pkg/ai/providers/aianthropic"
	"github.com/Abraxas-365/manifesto/pkg/fsx"
	"github.com/Abraxas-365/manifesto/pkg/fsx/fsxlocal"
	"github.com/Abraxas-365/manifesto/pkg/fsx/fsxs3"
	"github.com/Abraxas-365/manifesto/pkg/jobx"
	"github.com/Abraxas-365/manifesto/pkg/jobx/jobxredis"
	"github.com/Abraxas-365/manifesto/pkg/logx"
	awsConfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"github.com/redis/go-redis/v9"
	"golang.org/x/oauth2/google"

	"github.com/digpatho/crm-backend/pkg/authn"
	"github.com/digpatho/crm-backend/pkg/campaign/campaignapi"
	"github.com/digpatho/crm-backend/pkg/campaign/campaigninfra"
	"github.com/digpatho/crm-backend/pkg/campaign/campaignsrv"
	"github.com/digpatho/crm-backend/pkg/config"
	"github.com/digpatho/crm-backend/pkg/contact/contactapi"
	"github.com/digpatho/crm-backend/pkg/contact/contactinfra"
	"github.com/digpatho/crm-backend/pkg/contact/contactsrv"
	"github.com/digpatho/crm-backend/pkg/drafting/draftingapi"
	"github.com/digpatho/crm-backend/pkg/drafting/draftinginfra"
	"github.com/digpatho/crm-backend/pkg/drafting/draftingsrv"
	"github.com/digpatho/crm-backend/pkg/mailer"
	"github.com/digpatho/crm-backend/pkg/mailer/gmailx"
	"github.com/digpatho/crm-backend/pkg/operator/operatorapi"
	"github.com/digpatho/crm-backend/pkg/operator/operatorinfra"
)

// Container holds shared infrastructure and the composed module handlers.
type Container struct {
	Config *config.Config

	// Infrastructure (shared across all modules)
	DB         *sqlx.DB
	Redis      *redis.Client
	FileSystem fsx.FileSystem
	S3Client   *s3.Client
	Jobs       *jobx.Client

	// Middleware
	Auth *authn.Middleware

	// Module handlers
	OperatorHandlers *operatorapi.Handlers
	ContactHandlers  *contactapi.Handlers
	CampaignHandlers *campaignapi.Handlers
	DraftingHandlers *draftingapi.Handlers
}

func NewContainer(cfg *config.Config) *Container {
	logx.Info("🔧 Initializing application container...")

	c := &Container{Config: cfg}

	c.initInfrastructure()
	c.initModules()

	logx.Info("✅ Application container initialized")
	return c
}

// ---------------------------------------------------------------------------
// Infrastructure — DB, Redis, file storage, job queue
// ---------------------------------------------------------------------------

func (c *Container) initInfrastructure() {
	logx.Info("🏗️ Initializing infrastructure...")

	// 1. Database
	db, err := sqlx.Connect("postgres", c.Config.Database.DSN())
	if err != nil {
		logx.Fatalf("Failed to connect to database: %v", err)
	}
	db.SetMaxOpenConns(c.Config.Database.MaxOpenConns)
	db.SetMaxIdleConns(c.Config.Database.MaxIdleConns)
	db.SetConnMaxLifetime(c.Config.Database.ConnMaxLifetime)
	c.DB = db
	logx.Info("  ✅ Database connected")

	// 2. Redis
	c.Redis = redis.NewClient(&redis.Options{
		Addr:     c.Config.Redis.Address(),
		Password: c.Config.Redis.Password,
		DB:       c.Config.Redis.DB,
	})
	if _, err := c.Redis.Ping(context.Background()).Result(); err != nil {
		logx.Fatalf("Failed to connect to Redis: %v (Redis is required)", err)
	}
	logx.Info("  ✅ Redis connected")

	// 3. File storage
	c.initFileStorage()

	// 4. Job queue
	c.Jobs = jobx.NewClient(
		jobxredis.NewRedisQueue(c.Redis),
		jobx.WithQueues(c.Config.Jobs.Queue),
		jobx.WithConcurrency(c.Config.Jobs.Concurrency),
	)
	logx.Infof("  ✅ Job queue configured (queue: %s, concurrency: %d)",
		c.Config.Jobs.Queue, c.Config.Jobs.Concurrency)

	logx.Info("✅ Infrastructure initialized")
}

func (c *Container) initFileStorage() {
	switch c.Config.Storage.Mode {
	case "s3":
		cfg, err := awsConfig.LoadDefaultConfig(context.TODO(),
			awsConfig.WithRegion(c.Config.Storage.AWSRegion))
		if err != nil {
			logx.Fatalf("Unable to load AWS SDK config: %v", err)
		}
		c.S3Client = s3.NewFromConfig(cfg)
		c.FileSystem = fsxs3.NewS3FileSystem(c.S3Client, c.Config.Storage.AWSBucket, "")
		logx.Infof("  ✅ S3 file system configured (bucket: %s, region: %s)",
			c.Config.Storage.AWSBucket, c.Config.Storage.AWSRegion)

	case "local":
		localFS, err := fsxlocal.NewLocalFileSystem(c.Config.Storage.LocalDir)
		if err != nil {
			logx.Fatalf("Failed to initialize local file system: %v", err)
		}
		c.FileSystem = localFS
		logx.Infof("  ✅ Local file system configured (path: %s)", localFS.GetBasePath())

	default:
		logx.Fatalf("Unknown STORAGE_MODE: %s (use 'local' or 's3')", c.Config.Storage.Mode)
	}
}

// ---------------------------------------------------------------------------
// Module composition
// ---------------------------------------------------------------------------

func (c *Container) initModules() {
	logx.Info("📦 Initializing modules...")

	c.Auth = authn.NewMiddleware(c.Config.Auth.JWTSecret)

	// Repositories
	profiles := operatorinfra.NewPostgresProfileRepository(c.DB)
	contacts := contactinfra.NewPostgresContactRepository(c.DB)
	interactions := contactinfra.NewPostgresInteractionRepository(c.DB)
	campaigns := campaigninfra.NewPostgresCampaignRepository(c.DB)
	queue := campaigninfra.NewPostgresQueueRepository(c.DB)
	drafts := draftinginfra.NewPostgresDraftRepository(c.DB)
	control := campaigninfra.NewRedisControlStore(c.Redis)

	// Contacts. The contact service doubles as the interaction journal the
	// dispatcher writes sent emails through.
	contactService := contactsrv.NewService(contacts, interactions)
	c.ContactHandlers = contactapi.NewHandlers(contactService)
	logx.Info("  ✅ Contact module initialized")

	// Operator profiles and the Gmail OAuth flow.
	c.OperatorHandlers = operatorapi.NewHandlers(
		profiles,
		c.Config.Google.ClientID,
		c.Config.Google.ClientSecret,
		c.Config.Google.RedirectURL,
	)
	logx.Info("  ✅ Operator module initialized")

	// Campaigns: dispatcher runs inside the job worker, the supervisor
	// enqueues runs and relays pause/cancel signals through Redis.
	oauthCfg := mailer.OAuthConfig{
		ClientID:     c.Config.Google.ClientID,
		ClientSecret: c.Config.Google.ClientSecret,
		Endpoint:     google.Endpoint,
	}
	dispatcher := campaignsrv.NewDispatcher(
		campaigns, queue, control, contactService, gmailx.NewTransport(), c.FileSystem,
	)
	worker := campaignsrv.NewWorker(campaigns, profiles, dispatcher, oauthCfg)
	worker.Register(c.Jobs)

	supervisor := campaignsrv.NewSupervisor(campaigns, control, c.Jobs, c.Config.Jobs.Queue)
	campaignService := campaignsrv.NewService(campaigns, queue, c.FileSystem)
	c.CampaignHandlers = campaignapi.NewHandlers(campaignService, supervisor)
	logx.Info("  ✅ Campaign module initialized")

	// Drafting: Claude-backed email generation.
	provider := aianthropic.NewAnthropicProvider(c.Config.Anthropic.APIKey)
	model := llm.NewClient(provider)
	draftingService := draftingsrv.NewService(drafts, contacts, interactions, model, c.Config.Anthropic.Model)
	c.DraftingHandlers = draftingapi.NewHandlers(draftingService)
	logx.Info("  ✅ Drafting module initialized")
}

// ---------------------------------------------------------------------------
// Lifecycle
// ---------------------------------------------------------------------------

func (c *Container) StartBackgroundServices(ctx context.Context) {
	logx.Info("🔄 Starting background services...")

	go func() {
		if err := c.Jobs.Start(ctx); err != nil {
			logx.Errorf("Job worker stopped: %v", err)
		}
	}()
}

func (c *Container) Cleanup() {
	logx.Info("🧹 Cleaning up resources...")

	if c.DB != nil {
		if err := c.DB.Close(); err != nil {
			logx.Errorf("Error closing database: %v", err)
		} else {
			logx.Info("  ✅ Database connection closed")
		}
	}

	if c.Redis != nil {
		if err := c.Redis.Close(); err != nil {
			logx.Errorf("Error closing Redis: %v", err)
		} else {
			logx.Info("  ✅ Redis connection closed")
		}
	}

	logx.Info("✅ Cleanup complete")
}
