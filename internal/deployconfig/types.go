package deployconfig

import (
	"fmt"
	"strings"
)

// Region is a deployment region accepted by the control plane.
type Region string

const (
	RegionUS Region = "us"
	RegionEU Region = "eu"
	RegionAP Region = "ap"
)

// Regions lists the accepted regions in display order.
var Regions = []Region{RegionUS, RegionEU, RegionAP}

func (r Region) valid() bool {
	for _, known := range Regions {
		if r == known {
			return true
		}
	}
	return false
}

// AudioFilter selects the Krisp VIVA noise model.
type AudioFilter string

const (
	AudioFilterTelephony AudioFilter = "tel"
	AudioFilterPro       AudioFilter = "pro"
)

func (f AudioFilter) valid() bool {
	return f == AudioFilterTelephony || f == AudioFilterPro
}

// KrispViva configures Krisp VIVA noise cancellation.
type KrispViva struct {
	AudioFilter AudioFilter
}

// MaxInstancesLimit is the largest max-instances value the service accepts.
const MaxInstancesLimit = 50

// ScalingSpec bounds the number of running agent instances. Nil means unset.
type ScalingSpec struct {
	MinInstances *int
	MaxInstances *int
}

// Validate enforces Min >= 0, 1 <= Max <= 50 and, when both are set,
// Max >= Min.
func (s ScalingSpec) Validate() error {
	if s.MinInstances != nil && *s.MinInstances < 0 {
		return invalid(fmt.Sprintf("min instances must be 0 or greater, got %d", *s.MinInstances), "scaling.min_instances")
	}
	if s.MaxInstances != nil {
		if *s.MaxInstances < 1 {
			return invalid(fmt.Sprintf("max instances must be at least 1, got %d", *s.MaxInstances), "scaling.max_instances")
		}
		if *s.MaxInstances > MaxInstancesLimit {
			return invalid(fmt.Sprintf("max instances must be at most %d, got %d", MaxInstancesLimit, *s.MaxInstances), "scaling.max_instances")
		}
	}
	if s.MinInstances != nil && s.MaxInstances != nil && *s.MaxInstances < *s.MinInstances {
		return invalid(fmt.Sprintf("max instances (%d) must be greater than or equal to min instances (%d)", *s.MaxInstances, *s.MinInstances),
			"scaling.min_instances", "scaling.max_instances")
	}
	return nil
}

// Partial is one configuration layer. A nil field was not provided by
// that layer.
type Partial struct {
	AgentName         *string
	Image             *string
	ImageCredentials  *string
	SecretSet         *string
	Scaling           ScalingSpec
	Region            *Region
	EnableManagedKeys *bool
	EnableKrisp       *bool
	KrispViva         *KrispViva
	AgentProfile      *string
}

// DeployConfig is the fully resolved, validated configuration of one
// deployment. It is only produced by Resolve and carries copies of every
// layer value, so later changes to a layer never leak into it.
type DeployConfig struct {
	AgentName         string
	Image             string
	ImageCredentials  *string
	SecretSet         *string
	Scaling           ScalingSpec
	Region            *Region
	EnableManagedKeys *bool
	EnableKrisp       *bool
	KrispViva         *KrispViva
	AgentProfile      *string
}

// Defaults returns the built-in layer: min instances 0, everything else unset.
func Defaults() DeployConfig {
	return DeployConfig{Scaling: ScalingSpec{MinInstances: Int(0)}}
}

// MinInstances returns the minimum instance count, or 0 when unset.
func (c DeployConfig) MinInstances() int {
	if c.Scaling.MinInstances == nil {
		return 0
	}
	return *c.Scaling.MinInstances
}

// MaxInstances returns the maximum instance count and whether it was set.
func (c DeployConfig) MaxInstances() (int, bool) {
	if c.Scaling.MaxInstances == nil {
		return 0, false
	}
	return *c.Scaling.MaxInstances, true
}

func (c DeployConfig) validate() error {
	if c.AgentName == "" {
		return invalid("agent name is required", "agent_name")
	}
	if strings.ContainsAny(c.AgentName, "/ \t\r\n") {
		return invalid(fmt.Sprintf("agent name %q must not contain slashes or whitespace", c.AgentName), "agent_name")
	}
	if c.Image == "" {
		return invalid("image is required", "image")
	}
	if err := c.Scaling.Validate(); err != nil {
		return err
	}
	if c.Region != nil && !c.Region.valid() {
		return invalid(fmt.Sprintf("region must be one of us, eu, ap, got %q", *c.Region), "region")
	}
	if c.KrispViva != nil && !c.KrispViva.AudioFilter.valid() {
		return invalid(fmt.Sprintf("krisp viva audio filter must be tel or pro, got %q", c.KrispViva.AudioFilter), "krisp_viva.audio_filter")
	}
	return nil
}

// String and Int are small helpers for building layers in callers and tests.
func String(v string) *string { return &v }

func Int(v int) *int { return &v }

func Bool(v bool) *bool { return &v }
