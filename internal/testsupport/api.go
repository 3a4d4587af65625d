package testsupport

import (
	"context"
	"sync"

	"pcc/internal/api"
)

// FakeAPI is a scripted control plane for orchestrator tests.
//
// The first Agent call answers the existence check with Existing. Later calls
// walk Statuses, repeating the last entry once it runs out. Errors for a
// given lookup are taken from LookupErrs, keyed by 1-based call number.
// When Presenter is set, non-bubbled *api.Error results are presented the
// way *api.Client presents them.
type FakeAPI struct {
	mu sync.Mutex

	Existing     *api.DeploymentStatus
	Statuses     []*api.DeploymentStatus
	LookupErrs   map[int]error
	SecretSets   map[string]bool
	SecretErrs   map[string]error
	CreateResult api.Submission
	CreateErr    error
	UpdateErr    error
	Presenter    api.Presenter
	// OnLookup runs before each Agent call returns.
	OnLookup func(n int)

	Lookups       int
	SecretChecks  []string
	BubbledChecks []string
	Created       []api.ServicePayload
	Updated       []api.ServicePayload
}

// Agent implements deploy.API.
func (f *FakeAPI) Agent(_ context.Context, _, _ string, opts ...api.CallOption) (*api.DeploymentStatus, error) {
	f.mu.Lock()
	f.Lookups++
	n := f.Lookups
	hook := f.OnLookup
	var status *api.DeploymentStatus
	switch {
	case n == 1:
		status = f.Existing
	case len(f.Statuses) == 0:
	case n-2 < len(f.Statuses):
		status = f.Statuses[n-2]
	default:
		status = f.Statuses[len(f.Statuses)-1]
	}
	err := f.LookupErrs[n]
	f.mu.Unlock()

	if hook != nil {
		hook(n)
	}
	if err != nil {
		f.present(err, opts)
		return nil, err
	}
	return status, nil
}

// SecretSetExists implements deploy.API.
func (f *FakeAPI) SecretSetExists(_ context.Context, _, set string, opts ...api.CallOption) (bool, error) {
	f.mu.Lock()
	f.SecretChecks = append(f.SecretChecks, set)
	if api.IsBubbled(opts...) {
		f.BubbledChecks = append(f.BubbledChecks, set)
	}
	err := f.SecretErrs[set]
	exists := f.SecretSets[set]
	f.mu.Unlock()

	if err != nil {
		f.present(err, opts)
		return false, err
	}
	return exists, nil
}

// CreateService implements deploy.API.
func (f *FakeAPI) CreateService(_ context.Context, _ string, payload api.ServicePayload, opts ...api.CallOption) (api.Submission, error) {
	f.mu.Lock()
	f.Created = append(f.Created, payload)
	result, err := f.CreateResult, f.CreateErr
	f.mu.Unlock()
	if err != nil {
		f.present(err, opts)
		return nil, err
	}
	return result, nil
}

// UpdateService implements deploy.API.
func (f *FakeAPI) UpdateService(_ context.Context, _ string, payload api.ServicePayload, opts ...api.CallOption) (api.Submission, error) {
	f.mu.Lock()
	f.Updated = append(f.Updated, payload)
	err := f.UpdateErr
	f.mu.Unlock()
	if err != nil {
		f.present(err, opts)
		return nil, err
	}
	return api.Submission{"updated": true}, nil
}

// Mutations returns the number of create and update calls made.
func (f *FakeAPI) Mutations() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.Created) + len(f.Updated)
}

func (f *FakeAPI) present(err error, opts []api.CallOption) {
	if f.Presenter == nil || api.IsBubbled(opts...) {
		return
	}
	if apiErr, ok := err.(*api.Error); ok {
		f.Presenter.PresentError(apiErr)
	}
}

// RecordingPresenter collects presented errors.
type RecordingPresenter struct {
	mu     sync.Mutex
	Errors []*api.Error
}

// PresentError implements api.Presenter.
func (p *RecordingPresenter) PresentError(err *api.Error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.Errors = append(p.Errors, err)
}

// Count returns how many errors were presented.
func (p *RecordingPresenter) Count() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.Errors)
}
