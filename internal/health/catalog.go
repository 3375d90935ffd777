package health

import (
	"regexp"

	"github.com/steveyegge/esxidiag/internal/config"
	"github.com/steveyegge/esxidiag/internal/facts"
	"github.com/steveyegge/esxidiag/internal/types"
)

// logSamples is how many matching log lines a pattern finding quotes.
const logSamples = 3

func kb(article string) string { return "https://kb.vmware.com/s/article/" + article }

// thresholdEvidence lists the evidence labels of a threshold or age finding.
func thresholdEvidence(m Measure) []string {
	if m.SubjectLabel() == "" {
		return []string{m.ValueLabel(), "threshold"}
	}
	return []string{m.SubjectLabel(), m.ValueLabel(), "threshold"}
}

func patternRule(id string, cat types.Category, sev types.Severity, title, desc, expr, article string, remediation ...string) Rule {
	return Rule{
		ID:             id,
		Category:       cat,
		Severity:       sev,
		Title:          title,
		Description:    desc,
		Kind:           KindPattern,
		Pattern:        &PatternCondition{Pattern: regexp.MustCompile(expr), MaxSamples: logSamples},
		Requires:       []facts.Domain{facts.DomainLogs},
		EvidenceFields: []string{"log", "matches", "sample"},
		Remediation:    remediation,
		References:     []string{kb(article)},
	}
}

// builtinRules is the rule table of this release.
func builtinRules() []Rule {
	return []Rule{
		// Storage
		{
			ID:          "storage.high_latency",
			Category:    types.CategoryStorage,
			Severity:    types.SeverityHigh,
			Title:       "High Storage Latency",
			Description: "Storage devices are reporting latency above the configured threshold",
			Kind:        KindThreshold,
			Threshold: &ThresholdCondition{
				Key: config.KeyHighLatencyMS, Op: GreaterThan, Measure: MeasureDeviceLatency,
			},
			Requires:       []facts.Domain{facts.DomainStorageLatency},
			EvidenceFields: thresholdEvidence(MeasureDeviceLatency),
			Remediation:    []string{"Investigate storage bottlenecks and consider storage optimization or upgrades"},
			References:     []string{kb("2019131")},
		},
		{
			ID:             "storage.device_degraded",
			Category:       types.CategoryStorage,
			Severity:       types.SeverityHigh,
			Title:          "Storage Device Issues",
			Description:    "One or more storage devices are reporting errors or degraded state",
			Kind:           KindPresence,
			Presence:       &PresenceCondition{Check: CheckDeviceDegraded},
			Requires:       []facts.Domain{facts.DomainStorageDevices},
			EvidenceFields: []string{"device", "status", "offline"},
			Remediation:    []string{"Check the storage hardware and consider replacing faulty devices"},
			References:     []string{kb("1003659")},
		},
		{
			ID:          "storage.low_datastore_space",
			Category:    types.CategoryStorage,
			Severity:    types.SeverityHigh,
			Title:       "Low Datastore Space",
			Description: "Datastores are running low on free space",
			Kind:        KindThreshold,
			Threshold: &ThresholdCondition{
				Key: config.KeyLowDatastoreSpacePercent, Op: LessThan, Measure: MeasureDatastoreFree,
			},
			Requires:       []facts.Domain{facts.DomainDatastores},
			EvidenceFields: thresholdEvidence(MeasureDatastoreFree),
			Remediation: []string{
				"Free up space by removing unnecessary files or snapshots",
				"Add more storage capacity",
			},
			References: []string{kb("1003412")},
		},
		patternRule("storage.medium_errors", types.CategoryStorage, types.SeverityHigh,
			"Storage Medium Errors",
			"Storage devices are reporting medium errors which may indicate failing hardware",
			`SCSI\s+sense.*?Medium error`, "1008493",
			"Run hardware diagnostics on the storage and consider replacing failing drives"),
		patternRule("storage.device_throttled", types.CategoryStorage, types.SeverityHigh,
			"Storage Device Throttling",
			"One or more storage devices are being throttled due to errors or performance issues",
			`NMP: nmp_ThrottleLogForDevice.*?device is blocked`, "2036778",
			"Check storage array health and connectivity"),

		// Compute
		{
			ID:          "compute.high_cpu",
			Category:    types.CategoryCPU,
			Severity:    types.SeverityMedium,
			Title:       "High CPU Utilization",
			Description: "CPU utilization is above the configured threshold",
			Kind:        KindThreshold,
			Threshold: &ThresholdCondition{
				Key: config.KeyHighCPUPercent, Op: GreaterThan, Measure: MeasureCPUUsage,
			},
			Requires:       []facts.Domain{facts.DomainCPU},
			EvidenceFields: thresholdEvidence(MeasureCPUUsage),
			Remediation: []string{
				"Investigate high CPU consuming processes",
				"Consider optimizing workloads or adding resources",
			},
			References: []string{kb("2001003")},
		},
		patternRule("compute.cpu_threshold_events", types.CategoryCPU, types.SeverityMedium,
			"CPU Threshold Events",
			"The host logged CPU utilization above its configured alarm thresholds",
			`CPU\s+usage.*?above.*?threshold`, "2001003",
			"Investigate high CPU consuming processes and consider optimizing workloads or adding resources"),
		{
			ID:          "compute.low_memory",
			Category:    types.CategoryMemory,
			Severity:    types.SeverityHigh,
			Title:       "Low Available Memory",
			Description: "Host memory usage is above the configured threshold",
			Kind:        KindThreshold,
			Threshold: &ThresholdCondition{
				Key: config.KeyHighMemoryPercent, Op: GreaterThan, Measure: MeasureMemoryUsed,
			},
			Requires:       []facts.Domain{facts.DomainMemory},
			EvidenceFields: thresholdEvidence(MeasureMemoryUsed),
			Remediation:    []string{"Consider adding more memory or reducing VM memory allocations"},
			References:     []string{kb("1003501")},
		},
		patternRule("compute.out_of_memory", types.CategoryMemory, types.SeverityCritical,
			"Out of Memory Condition",
			"The ESXi host is experiencing memory pressure and may be running out of available memory",
			`(?i)out\s+of\s+memory`, "2005631",
			"Add more physical memory or reduce memory consumption by VMs"),

		// Network
		{
			ID:             "network.nic_down",
			Category:       types.CategoryNetwork,
			Severity:       types.SeverityHigh,
			Title:          "Network Interface Down",
			Description:    "One or more physical network interfaces report link down",
			Kind:           KindPresence,
			Presence:       &PresenceCondition{Check: CheckNICDown},
			Requires:       []facts.Domain{facts.DomainNICs},
			EvidenceFields: []string{"nic", "link status"},
			Remediation:    []string{"Check physical network connections, switch ports, and NIC configuration"},
			References:     []string{kb("2008144")},
		},
		{
			ID:          "network.low_redundancy",
			Category:    types.CategoryNetwork,
			Severity:    types.SeverityMedium,
			Title:       "Inadequate Network Redundancy",
			Description: "Some vSwitches have fewer uplinks than the configured minimum",
			Kind:        KindThreshold,
			Threshold: &ThresholdCondition{
				Key: config.KeyMinNetworkRedundancy, Op: LessThan, Measure: MeasureUplinkCount,
			},
			Requires:       []facts.Domain{facts.DomainVSwitches},
			EvidenceFields: thresholdEvidence(MeasureUplinkCount),
			Remediation:    []string{"Configure additional uplinks for affected vSwitches to provide redundancy"},
			References:     []string{kb("1003806")},
		},

		// Hardware
		{
			ID:             "hardware.health_state",
			Category:       types.CategoryHardware,
			Severity:       types.SeverityHigh,
			Title:          "Hardware Health Warning",
			Description:    "The host reports a hardware health state other than green",
			Kind:           KindPresence,
			Presence:       &PresenceCondition{Check: CheckHealthState},
			Requires:       []facts.Domain{facts.DomainHealthState},
			EvidenceFields: []string{"health state"},
			Remediation:    []string{"Check hardware sensors and logs for specific hardware failures"},
			References:     []string{kb("2004161")},
		},
		{
			ID:             "hardware.sensor_alert",
			Category:       types.CategoryHardware,
			Severity:       types.SeverityHigh,
			Title:          "Sensor Warning",
			Description:    "One or more hardware sensors are reporting warnings or critical values",
			Kind:           KindPresence,
			Presence:       &PresenceCondition{Check: CheckSensorAlert},
			Requires:       []facts.Domain{facts.DomainSensors},
			EvidenceFields: []string{"sensor", "state"},
			Remediation:    []string{"Investigate the hardware component mentioned in the sensor warning"},
			References:     []string{kb("2033588")},
		},
		patternRule("hardware.watchdog_timeout", types.CategoryHardware, types.SeverityHigh,
			"Watchdog Timeout",
			"System watchdog timeout events detected which may indicate system instability",
			`(?i)watchdog\s+timeout`, "2042355",
			"Check for hardware issues and consider updating ESXi and firmware"),
		patternRule("hardware.psod", types.CategoryHardware, types.SeverityCritical,
			"Purple Screen of Death",
			"The ESXi host has experienced one or more system crashes",
			`Purple\s+Screen`, "1004250",
			"Collect diagnostic information and contact VMware support"),

		// Virtual machines
		{
			ID:             "vm.problem_state",
			Category:       types.CategoryVM,
			Severity:       types.SeverityMedium,
			Title:          "VMs in Problematic State",
			Description:    "Some virtual machines are in an invalid or problematic state",
			Kind:           KindPresence,
			Presence:       &PresenceCondition{Check: CheckVMProblemState},
			Requires:       []facts.Domain{facts.DomainVMs},
			EvidenceFields: []string{"vm", "state"},
			Remediation:    []string{"Power cycle the affected VMs or migrate them to another host"},
			References:     []string{kb("1004340")},
		},
		{
			ID:          "vm.excessive_snapshots",
			Category:    types.CategoryVM,
			Severity:    types.SeverityMedium,
			Title:       "Excessive VM Snapshots",
			Description: "Some VMs have an excessive number of snapshots which can impact performance and storage",
			Kind:        KindThreshold,
			Threshold: &ThresholdCondition{
				Key: config.KeyMaxSnapshotsPerVM, Op: GreaterThan, Measure: MeasureSnapshotCount,
			},
			Requires:       []facts.Domain{facts.DomainVMs, facts.DomainSnapshots},
			EvidenceFields: thresholdEvidence(MeasureSnapshotCount),
			Remediation:    []string{"Consolidate or remove unnecessary snapshots"},
			References:     []string{kb("1025279")},
		},
		{
			ID:             "vm.stale_snapshot",
			Category:       types.CategoryVM,
			Severity:       types.SeverityMedium,
			Title:          "Stale VM Snapshot",
			Description:    "Snapshots older than the configured age grow without bound and slow the VM",
			Kind:           KindAge,
			Age:            &AgeCondition{Key: config.KeyMaxSnapshotAgeDays, Measure: MeasureSnapshotAge},
			Requires:       []facts.Domain{facts.DomainVMs, facts.DomainSnapshots},
			EvidenceFields: thresholdEvidence(MeasureSnapshotAge),
			Remediation:    []string{"Consolidate or delete the snapshot once it is no longer needed"},
			References:     []string{kb("1025279")},
		},

		// Platform
		{
			ID:             "platform.eol_version",
			Category:       types.CategorySecurity,
			Severity:       types.SeverityHigh,
			Title:          "EOL ESXi Version",
			Description:    "The host runs an ESXi version that is past its end of general support",
			Kind:           KindPresence,
			Presence:       &PresenceCondition{Check: CheckVersionRange, MaxVersion: "6.5.0"},
			Requires:       []facts.Domain{facts.DomainVersion},
			EvidenceFields: []string{"version"},
			Remediation:    []string{"Upgrade to a supported ESXi version (7.0 or newer recommended)"},
			References:     []string{kb("2145103")},
		},
		{
			ID:             "platform.outdated_version",
			Category:       types.CategorySecurity,
			Severity:       types.SeverityMedium,
			Title:          "Outdated ESXi Version",
			Description:    "The host runs an ESXi version older than 7.0",
			Kind:           KindPresence,
			Presence:       &PresenceCondition{Check: CheckVersionRange, MinVersion: "6.5.0", MaxVersion: "7.0.0"},
			Requires:       []facts.Domain{facts.DomainVersion},
			EvidenceFields: []string{"version"},
			Remediation:    []string{"Consider upgrading to ESXi 7.0 or newer for the latest features and security updates"},
			References:     []string{kb("2145103")},
		},
		{
			ID:             "platform.excessive_uptime",
			Category:       types.CategorySecurity,
			Severity:       types.SeverityMedium,
			Title:          "Excessive Uptime",
			Description:    "The host has not been rebooted for longer than the configured limit and may be missing patches",
			Kind:           KindAge,
			Age:            &AgeCondition{Key: config.KeyMaxUptimeDays, Measure: MeasureUptime},
			Requires:       []facts.Domain{facts.DomainUptime},
			EvidenceFields: thresholdEvidence(MeasureUptime),
			Remediation:    []string{"Schedule a maintenance window to apply pending updates and reboot the host"},
			References:     []string{kb("2032823")},
		},
		{
			ID:             "platform.fact_inconsistency",
			Category:       types.CategoryConfig,
			Severity:       types.SeverityLow,
			Title:          "Inconsistent Host Facts",
			Description:    "Collected artifacts disagree on a value that should be unique; neither source is assumed correct",
			Kind:           KindPresence,
			Presence:       &PresenceCondition{Check: CheckInconsistency},
			EvidenceFields: []string{"field", "values"},
			Remediation:    []string{"Re-collect the diagnostic bundle and confirm which artifacts are current"},
		},
	}
}
