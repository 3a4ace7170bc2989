// Package app wires configuration into the long-lived dependencies shared
// by the api, gateway and sendctl binaries.
package app

import (
	"database/sql"
	"errors"
	"fmt"

	_ "github.com/lib/pq"
	"go.uber.org/zap"

	"bulksender/internal/config"
	"bulksender/internal/logger"
	"bulksender/internal/queue"
	"bulksender/internal/repository"
	"bulksender/internal/service"
	"bulksender/internal/transport"
)

// Runtime holds the connections opened for one process
type Runtime struct {
	Config *config.Config
	Log    *zap.Logger
	// DB is nil when no database is configured
	DB *sql.DB
	// Queue is nil unless the amqp transport is selected
	Queue *queue.Connection
}

// Open connects to the database (when configured) and to RabbitMQ (when the
// amqp transport is selected)
func Open(cfg *config.Config, log *zap.Logger) (*Runtime, error) {
	rt := &Runtime{Config: cfg, Log: logger.OrNop(log)}

	if cfg.Database.Enabled() {
		db, err := sql.Open("postgres", cfg.GetDatabaseDSN())
		if err != nil {
			return nil, fmt.Errorf("failed to connect to database: %w", err)
		}
		if err := db.Ping(); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to ping database: %w", err)
		}
		rt.DB = db
		rt.Log.Info("connected to database", zap.String("host", cfg.Database.Host))
	}

	if cfg.Session.Transport == config.TransportAMQP {
		conn, err := queue.NewConnection(cfg.GetRabbitMQURL(), rt.Log.Named("queue"))
		if err != nil {
			rt.Close()
			return nil, err
		}
		rt.Queue = conn
	}

	return rt, nil
}

// ClientFactory returns the constructor of the configured transport client
func (r *Runtime) ClientFactory() service.ClientFactory {
	session := r.Config.Session
	if session.Transport == config.TransportAMQP {
		return func() (transport.Client, error) {
			if r.Queue == nil {
				return nil, errors.New("rabbitmq is not connected")
			}
			return queue.NewBridgeClient(r.Queue, session.SendTimeout, r.Log.Named("bridge"))
		}
	}
	return func() (transport.Client, error) {
		return NewSimulator(session), nil
	}
}

// NewSimulator builds the simulated transport described by cfg
func NewSimulator(cfg config.SessionConfig) *transport.Simulator {
	var opts []transport.SimulatorOption
	if cfg.SimulatorAutoScan {
		opts = append(opts, transport.WithAutoScan(0))
	}
	return transport.NewSimulator(cfg.SimulatorSuccessRate, opts...)
}

// Contacts returns the contact repository, or nil without a database
func (r *Runtime) Contacts() repository.ContactRepository {
	if r.DB == nil {
		return nil
	}
	return repository.NewContactRepository(r.DB)
}

// QueueStatus returns the queue connection for health checks, or nil when
// the queue is not in use
func (r *Runtime) QueueStatus() service.QueueStatusProvider {
	if r.Queue == nil {
		return nil
	}
	return r.Queue
}

// Close releases every connection
func (r *Runtime) Close() error {
	var errs []error
	if r.Queue != nil {
		if err := r.Queue.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	if r.DB != nil {
		if err := r.DB.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
