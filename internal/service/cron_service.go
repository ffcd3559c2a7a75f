// Package service contains the service layer for the Findex API
package service

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/robfig/cron/v3"
	"gorm.io/gorm"

	"github.com/codeit/findexapi/internal/config"
	"github.com/codeit/findexapi/internal/repository"
	"github.com/codeit/findexapi/pkg/utils/zaplogger"
)

// cronWorkerID marks ledger entries produced by scheduled runs
const cronWorkerID = "cron"

// CronService runs the scheduled ingestion jobs
type CronService struct {
	cfg            *config.Config
	c              *cron.Cron
	syncService    *SyncService
	definitionRepo *repository.DefinitionRepository
}

// NewCronService creates a new CronService
func NewCronService(cfg *config.Config, db *gorm.DB, redisClient *redis.Client) *CronService {
	return &CronService{
		cfg:            cfg,
		c:              cron.New(),
		syncService:    NewSyncService(db, redisClient, cfg),
		definitionRepo: repository.NewDefinitionRepository(db),
	}
}

// Start starts the cron service
func (cs *CronService) Start() {
	zaplogger.Info("Initializing CronService")

	// Definitions first so the evening observation run covers indexes that
	// appeared during the day.
	cs.addScheduledJob("Definition SYNC Job", cs.definitionSyncJob, "0 18 * * 1-5")    // Once at 06:00pm, Mon-Fri
	cs.addScheduledJob("Observation SYNC Job", cs.observationSyncJob, "10 18 * * 1-5") // Once at 06:10pm, Mon-Fri

	cs.c.Start()
}

func (cs *CronService) addScheduledJob(name string, job func(), schedule string) {
	_, err := cs.c.AddFunc(schedule, func() {
		zaplogger.Info("STARTED SCHEDULED JOB", zaplogger.Fields{
			"job": name,
		})
		job()
		zaplogger.Info("COMPLETED SCHEDULED JOB", zaplogger.Fields{
			"job": name,
		})
	})
	if err != nil {
		zaplogger.Error("FAILED TO QUEUE SCHEDULED JOB", zaplogger.Fields{
			"job":   name,
			"error": err.Error(),
		})
		return
	}
	zaplogger.Info("QUEUED SCHEDULED job", zaplogger.Fields{
		"job": name,
	})
}

// definitionSyncJob ingests newly listed index definitions
func (cs *CronService) definitionSyncJob() {
	jobName := "Definition SYNC Job"

	entries, err := cs.syncService.SyncDefinitions(context.Background(), cronWorkerID)
	if err != nil {
		zaplogger.Error(jobName, zaplogger.Fields{
			"error": err.Error(),
		})
		return
	}
	zaplogger.Info(jobName, zaplogger.Fields{
		"ledger_entries": len(entries),
	})
}

// observationSyncJob ingests today's observations for every known definition
func (cs *CronService) observationSyncJob() {
	jobName := "Observation SYNC Job"

	definitions, err := cs.definitionRepo.GetAllDefinitions()
	if err != nil {
		zaplogger.Error(jobName, zaplogger.Fields{
			"step":  "GetAllDefinitions",
			"error": err.Error(),
		})
		return
	}
	if len(definitions) == 0 {
		zaplogger.Info(jobName, zaplogger.Fields{
			"skipped": "no definitions",
		})
		return
	}

	ids := make([]int64, len(definitions))
	for i := range definitions {
		ids[i] = definitions[i].ID
	}

	today := time.Now()
	entries, err := cs.syncService.SyncObservations(context.Background(), cronWorkerID, ids, today, today)
	if err != nil {
		zaplogger.Error(jobName, zaplogger.Fields{
			"step":  "SyncObservations",
			"error": err.Error(),
		})
		return
	}
	zaplogger.Info(jobName, zaplogger.Fields{
		"ledger_entries": len(entries),
	})
}

// Stop stops the cron service
func (cs *CronService) Stop() {
	cs.c.Stop()
}
