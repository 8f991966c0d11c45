package app

import (
	"github.com/ignite/filterplane/internal/campaign"
	"github.com/ignite/filterplane/internal/monitoring"
	"github.com/ignite/filterplane/internal/ratio"
	"github.com/ignite/filterplane/internal/retention"
	"github.com/ignite/filterplane/internal/rules"
	"github.com/ignite/filterplane/internal/stats"
)

// Rules exposes the filter-rule write/read boundary (C2) to whatever
// admin surface a caller builds on top of App.
func (a *App) Rules() *rules.Service { return a.rulesSvc }

// Campaign exposes campaign analytics (C6).
func (a *App) Campaign() *campaign.Engine { return a.campaignEngine }

// Stats exposes the Subject Stats side table (C5).
func (a *App) Stats() *stats.Service { return a.statsSvc }

// MonitoringSignals exposes monitoring rule status reads (C7's
// signal bookkeeping).
func (a *App) MonitoringSignals() *monitoring.SignalService { return a.monitoringSig }

// Ratio exposes the ratio monitor service (C12) for ad hoc evaluation
// outside the scheduler's own tick.
func (a *App) Ratio() *ratio.Service { return a.ratioSvc }

// Retention exposes the retention/cleanup service (C11) for
// on-demand admin-triggered cleanup runs between scheduled ticks.
func (a *App) Retention() *retention.Service { return a.retentionSvc }

// DynamicConfig exposes the live-editable dynamic-rule-detector
// config (C4) so an admin surface can read and update it without a
// process restart.
func (a *App) DynamicConfig() *DynamicConfigStore { return a.dynamicConfig }
