package deployconfig

import "strings"

// Resolve merges the command-line layer, the file layer, and the defaults
// with per-field precedence cli > file > defaults, then validates the result.
// Either layer may be nil. Failures wrap ErrConfigInvalid.
func Resolve(cli, file *Partial, defaults DeployConfig) (DeployConfig, error) {
	if cli == nil {
		cli = &Partial{}
	}
	if file == nil {
		file = &Partial{}
	}

	cfg := DeployConfig{
		AgentName:         trimmed(pick(cli.AgentName, file.AgentName, String(defaults.AgentName))),
		Image:             trimmed(pick(cli.Image, file.Image, String(defaults.Image))),
		ImageCredentials:  nonEmpty(pick(cli.ImageCredentials, file.ImageCredentials, defaults.ImageCredentials)),
		SecretSet:         nonEmpty(pick(cli.SecretSet, file.SecretSet, defaults.SecretSet)),
		Region:            normalizedRegion(pick(cli.Region, file.Region, defaults.Region)),
		EnableManagedKeys: pick(cli.EnableManagedKeys, file.EnableManagedKeys, defaults.EnableManagedKeys),
		EnableKrisp:       pick(cli.EnableKrisp, file.EnableKrisp, defaults.EnableKrisp),
		KrispViva:         normalizedKrispViva(pick(cli.KrispViva, file.KrispViva, defaults.KrispViva)),
		AgentProfile:      nonEmpty(pick(cli.AgentProfile, file.AgentProfile, defaults.AgentProfile)),
		Scaling: ScalingSpec{
			MinInstances: pick(cli.Scaling.MinInstances, file.Scaling.MinInstances, defaults.Scaling.MinInstances),
			MaxInstances: pick(cli.Scaling.MaxInstances, file.Scaling.MaxInstances, defaults.Scaling.MaxInstances),
		},
	}

	if err := cfg.validate(); err != nil {
		return DeployConfig{}, err
	}
	return cfg, nil
}

// pick returns a copy of the first non-nil value.
func pick[T any](layers ...*T) *T {
	for _, layer := range layers {
		if layer != nil {
			v := *layer
			return &v
		}
	}
	return nil
}

func trimmed(v *string) string {
	if v == nil {
		return ""
	}
	return strings.TrimSpace(*v)
}

// nonEmpty treats a blank string as unset.
func nonEmpty(v *string) *string {
	if v == nil || strings.TrimSpace(*v) == "" {
		return nil
	}
	s := strings.TrimSpace(*v)
	return &s
}

// Region and audio filter are matched case-insensitively whichever layer
// supplied them.
func normalizedRegion(r *Region) *Region {
	if r == nil {
		return nil
	}
	v := Region(strings.ToLower(strings.TrimSpace(string(*r))))
	return &v
}

func normalizedKrispViva(k *KrispViva) *KrispViva {
	if k == nil {
		return nil
	}
	return &KrispViva{AudioFilter: AudioFilter(strings.ToLower(strings.TrimSpace(string(k.AudioFilter))))}
}
