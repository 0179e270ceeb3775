// Copyright 2024 Seakee.  All rights reserved.
// Use of this source code is governed by a MIT style
// license that can be found in the LICENSE file.

// Package coordinator implements the coordinator RPC service (C5): the
// admission algorithm, and every metadata operation named in §4.3's
// external interface, laid out the way the teacher's app/service packages
// wrap a repository with business rules.
package coordinator

import (
	configrepo "github.com/leoscope/leoscope/app/repository/config"
	jobrepo "github.com/leoscope/leoscope/app/repository/job"
	noderepo "github.com/leoscope/leoscope/app/repository/node"
	runrepo "github.com/leoscope/leoscope/app/repository/run"
	taskrepo "github.com/leoscope/leoscope/app/repository/task"
	userrepo "github.com/leoscope/leoscope/app/repository/user"

	"github.com/leoscope/leoscope/app/notify"
	"github.com/leoscope/leoscope/app/pkg/lock"
	"github.com/sk-pkg/logger"
)

// Service is the coordinator's business layer, held by every HTTP
// controller under app/http/controller.
type Service struct {
	Users   userrepo.Repo
	Nodes   noderepo.Repo
	Jobs    jobrepo.Repo
	Runs    runrepo.Repo
	Tasks   taskrepo.Repo
	Configs configrepo.Repo

	locks    *lock.Manager
	notifier notify.Notifier
	logger   *logger.Manager

	// staticTokens maps a user id to its plaintext static access token, as
	// loaded from Coordinator.StaticTokens (§4.7). Only Bootstrap reads it,
	// to seed ADMIN users with the token's digest; the auth gate compares
	// against the digest stored on the user record, not against this map.
	staticTokens map[string]string

	// maxLockstepFirings bounds the admission algorithm's enumeration walk
	// (§4.1); see schedulealg.Firings.
	maxLockstepFirings int

	// consecutiveConflicts counts, per node, how many admissions in a row
	// have been rejected with CONFLICT — used to decide when to notify an
	// operator instead of silently returning CONFLICT every time.
	consecutiveConflicts map[string]int
}

// New builds a coordinator Service.
func New(
	users userrepo.Repo,
	nodes noderepo.Repo,
	jobs jobrepo.Repo,
	runs runrepo.Repo,
	tasks taskrepo.Repo,
	configs configrepo.Repo,
	locks *lock.Manager,
	notifier notify.Notifier,
	log *logger.Manager,
	staticTokens map[string]string,
	maxLockstepFirings int,
) *Service {
	if maxLockstepFirings <= 0 {
		maxLockstepFirings = 100000
	}
	return &Service{
		Users:                users,
		Nodes:                nodes,
		Jobs:                 jobs,
		Runs:                 runs,
		Tasks:                tasks,
		Configs:              configs,
		locks:                locks,
		notifier:             notifier,
		logger:               log,
		staticTokens:         staticTokens,
		maxLockstepFirings:   maxLockstepFirings,
		consecutiveConflicts: make(map[string]int),
	}
}
