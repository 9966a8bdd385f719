// Package main is the entry point of the Scribeline service.
// It initializes the Kratos application with gRPC and HTTP servers.
package main

import (
	"context"
	"flag"
	"os"

	"Scribeline/internal/biz"
	"Scribeline/internal/conf"
	"Scribeline/pkg/keypool"
	zapLogger "Scribeline/pkg/log"

	"github.com/go-kratos/kratos/v2"
	"github.com/go-kratos/kratos/v2/log"
	"github.com/go-kratos/kratos/v2/transport/grpc"
	"github.com/go-kratos/kratos/v2/transport/http"

	_ "go.uber.org/automaxprocs"
)

// go build -ldflags "-X main.Version=x.y.z"
var (
	// Name is the name of the compiled software.
	Name = "scribeline"
	// Version is the version of the compiled software.
	Version string
	// flagconf is the config flag.
	flagconf string

	id, _ = os.Hostname()
)

func init() {
	flag.StringVar(&flagconf, "conf", "../../configs/config.yaml", "config path, eg: -conf config.yaml")
}

func newApp(logger log.Logger, gs *grpc.Server, hs *http.Server, uc *biz.AIUsecase) *kratos.App {
	helper := log.NewHelper(logger)

	reports, err := NewReportCron(uc, logger)
	if err != nil {
		helper.Errorw("msg", "failed to register report cron job", "error", err)
	}

	return kratos.New(
		kratos.ID(id),
		kratos.Name(Name),
		kratos.Version(Version),
		kratos.Metadata(map[string]string{}),
		kratos.Logger(logger),
		kratos.Server(
			gs,
			hs,
		),
		kratos.AfterStart(func(context.Context) error {
			if reports != nil {
				reports.Start()
				helper.Infow("msg", "report cron job started", "spec", reportSpec)
			}
			return nil
		}),
		kratos.BeforeStop(func(context.Context) error {
			if reports != nil {
				<-reports.Stop().Done()
			}
			return nil
		}),
	)
}

// usableCredentials counts the credentials the pool keeps after dropping blank
// and non-string entries.
func usableCredentials(c *conf.AI) int {
	if c == nil {
		return 0
	}
	return keypool.FromValues(c.Credentials).Size()
}

func main() {
	flag.Parse()

	// Viper layers defaults, the YAML file and SCRIBELINE_* environment variables
	bc, err := conf.NewBootstrap(flagconf)
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	zapLog, err := zapLogger.NewZapLogger(bc.Log)
	if err != nil {
		log.Fatalf("failed to initialize zap logger: %v", err)
	}
	defer zapLog.Sync()

	logger := zapLogger.NewKratosAdapter(zapLog)
	logger = log.With(logger,
		"service.id", id,
		"service.name", Name,
		"service.version", Version,
	)

	zapLogger.NewLogHelper(logger).Startup("Scribeline service starting",
		"log.level", bc.Log.Level,
		"log.format", bc.Log.Format,
		"log.env", bc.Log.Env,
		"http.addr", bc.Server.Http.Addr,
		"grpc.addr", bc.Server.Grpc.Addr,
		"model", bc.AI.Model,
		"credentials", usableCredentials(bc.AI),
	)
	if usableCredentials(bc.AI) == 0 {
		log.NewHelper(logger).Warnw("msg", "no AI credentials configured; every call will fail with CONFIGURATION")
	}

	app, cleanup, err := wireApp(bc.Server, bc.Data, bc.AI, logger)
	if err != nil {
		panic(err)
	}
	defer cleanup()

	// start and wait for stop signal
	if err := app.Run(); err != nil {
		panic(err)
	}
}
