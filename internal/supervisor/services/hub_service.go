// Domus - Real Estate Marketplace Platform
// Copyright 2026 Nyk B. (nybras)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/nybras/domus

package services

import "context"

// ContextRunner matches components whose run loop takes a context and
// returns when it is canceled. Satisfied by *chat.Hub (RunWithContext) and
// *chat.Bridge (Run) through small adapter funcs.
type ContextRunner func(ctx context.Context) error

// RunnerService supervises any context-driven run loop.
type RunnerService struct {
	name string
	run  ContextRunner
}

// NewRunnerService wraps a run loop for supervision. The name appears in
// supervisor event logs.
func NewRunnerService(name string, run ContextRunner) *RunnerService {
	return &RunnerService{name: name, run: run}
}

// Serve implements suture.Service.
func (s *RunnerService) Serve(ctx context.Context) error {
	return s.run(ctx)
}

func (s *RunnerService) String() string { return s.name }
