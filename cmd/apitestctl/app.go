package main

import (
	"database/sql"

	"github.com/go-resty/resty/v2"

	"github.com/santhoshkumr96/orchestapi/internal/config"
	"github.com/santhoshkumr96/orchestapi/internal/connector"
	"github.com/santhoshkumr96/orchestapi/internal/connector/drivers"
	"github.com/santhoshkumr96/orchestapi/internal/domain/suite"
	"github.com/santhoshkumr96/orchestapi/internal/logging"
	"github.com/santhoshkumr96/orchestapi/internal/runregistry"
	"github.com/santhoshkumr96/orchestapi/internal/scheduler"
	"github.com/santhoshkumr96/orchestapi/internal/suiteexec"
	"github.com/santhoshkumr96/orchestapi/internal/verify"
)

// app bundles the collaborators every command wires together: the
// fixture store, the connector gateway, the suite executor, and the
// logger. Built fresh per invocation from rootFlags.fixturesDir: load
// the fixture store, build the engine, run the command.
type app struct {
	store    *config.Store
	gateway  *connector.Gateway
	registry *runregistry.Registry
	verifier *verify.Coordinator
	engine   *suiteexec.Engine
	log      *logging.Logger
}

func newApp(flags *rootFlags) (*app, error) {
	log, err := logging.New(logging.Options{Level: flags.logLevel})
	if err != nil {
		return nil, err
	}

	store, err := config.LoadDir(flags.fixturesDir)
	if err != nil {
		return nil, err
	}

	gateway := newGateway()
	reg := runregistry.New()
	verifier := verify.NewCoordinator(gateway)
	client := resty.New()
	engine := suiteexec.New(client, verifier, reg)

	return &app{
		store:    store,
		gateway:  gateway,
		registry: reg,
		verifier: verifier,
		engine:   engine,
		log:      log,
	}, nil
}

// newGateway registers every connector driver the engine ships with.
// MYSQL/ORACLE/SQLSERVER all route through the generic database/sql
// adapter since no concrete driver package is wired by default; a
// deployment that needs one blank-imports the driver and swaps in its
// own gateway.
func newGateway() *connector.Gateway {
	gw := connector.NewGateway()
	gw.Register(suite.ConnectorPostgres, drivers.Postgres{})
	gw.Register(suite.ConnectorRedis, drivers.Redis{})
	gw.Register(suite.ConnectorKafka, drivers.Kafka{})
	gw.Register(suite.ConnectorRabbitMQ, drivers.RabbitMQ{})
	gw.Register(suite.ConnectorMongoDB, drivers.MongoDB{})
	gw.Register(suite.ConnectorElasticsearch, drivers.Elasticsearch{})
	gw.Register(suite.ConnectorMySQL, drivers.GenericSQL{DriverName: sqlDriverOrEmpty("mysql")})
	gw.Register(suite.ConnectorOracle, drivers.GenericSQL{DriverName: sqlDriverOrEmpty("godror")})
	gw.Register(suite.ConnectorSQLServer, drivers.GenericSQL{DriverName: sqlDriverOrEmpty("sqlserver")})
	return gw
}

// sqlDriverOrEmpty reports name only if a database/sql driver was
// registered under it; otherwise MYSQL/ORACLE/SQLSERVER connector calls
// fail fast with GenericSQL's "requires a DriverName" validation error
// instead of a silent no-op.
func sqlDriverOrEmpty(name string) string {
	for _, d := range sql.Drivers() {
		if d == name {
			return name
		}
	}
	return ""
}

func newScheduler(a *app) *scheduler.Scheduler {
	return scheduler.New(a.engine, a.store, a.store, a.log)
}
