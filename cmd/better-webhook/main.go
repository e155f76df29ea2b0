package main

import (
	"fmt"
	"net/http"
	"os"
	"path/filepath"

	configtoml "github.com/endalk200/better-webhook-sub002/internal/adapters/config/toml"
	"github.com/endalk200/better-webhook-sub002/internal/adapters/provider"
	githubdetector "github.com/endalk200/better-webhook-sub002/internal/adapters/provider/github"
	"github.com/endalk200/better-webhook-sub002/internal/adapters/storage/jsonc"
	templatestore "github.com/endalk200/better-webhook-sub002/internal/adapters/storage/template"
	"github.com/endalk200/better-webhook-sub002/internal/adapters/transport/httpcapture"
	"github.com/endalk200/better-webhook-sub002/internal/adapters/transport/httpreplay"
	"github.com/endalk200/better-webhook-sub002/internal/adapters/transport/httptemplaterun"
	"github.com/endalk200/better-webhook-sub002/internal/adapters/transport/httptemplates"
	appcapture "github.com/endalk200/better-webhook-sub002/internal/app/capture"
	appcaptures "github.com/endalk200/better-webhook-sub002/internal/app/captures"
	appreplay "github.com/endalk200/better-webhook-sub002/internal/app/replay"
	apptemplates "github.com/endalk200/better-webhook-sub002/internal/app/templates"
	capturecmd "github.com/endalk200/better-webhook-sub002/internal/cli/capture"
	capturescmd "github.com/endalk200/better-webhook-sub002/internal/cli/captures"
	initcmd "github.com/endalk200/better-webhook-sub002/internal/cli/init"
	replaycmd "github.com/endalk200/better-webhook-sub002/internal/cli/replay"
	rootcmd "github.com/endalk200/better-webhook-sub002/internal/cli/root"
	templatescmd "github.com/endalk200/better-webhook-sub002/internal/cli/templates"
	"github.com/endalk200/better-webhook-sub002/internal/platform/logging"
	"github.com/endalk200/better-webhook-sub002/internal/platform/runtime"
	"github.com/endalk200/better-webhook-sub002/internal/platform/ui"
	"github.com/endalk200/better-webhook-sub002/internal/version"
)

var templatesLogger = logging.NewLogger(os.Stderr, runtime.DefaultLogLevel)

func main() {
	rootCommand := rootcmd.NewCommand(rootcmd.Dependencies{
		Version:      version.Version,
		ConfigLoader: configtoml.NewLoader(),
		CaptureDependencies: capturecmd.Dependencies{
			ServiceFactory: newCaptureService,
			ServerFactory:  httpcapture.NewServer,
		},
		CapturesDependencies: capturescmd.Dependencies{
			ServiceFactory: newCapturesService,
		},
		ReplayDependencies: replaycmd.Dependencies{
			ServiceFactory: newReplayService,
		},
		TemplateDependencies: templatescmd.Dependencies{
			ServiceFactory: newTemplateService,
			Prompter:       ui.DefaultPrompter,
		},
		InitDependencies: initcmd.Dependencies{
			ConfigWriter: configtoml.NewWriter(),
		},
	})

	if err := rootCommand.Execute(); err != nil {
		_, _ = fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newStore(capturesDir string) (*jsonc.Store, error) {
	return jsonc.NewStore(capturesDir, nil, nil)
}

func newCaptureService(capturesDir string) (*appcapture.Service, error) {
	store, err := newStore(capturesDir)
	if err != nil {
		return nil, err
	}
	detector := provider.NewRegistry(
		githubdetector.NewDetector(),
	)
	return appcapture.NewService(store, detector, nil, version.Version), nil
}

func newCapturesService(capturesDir string) (*appcaptures.Service, error) {
	store, err := newStore(capturesDir)
	if err != nil {
		return nil, err
	}
	return appcaptures.NewService(store), nil
}

func newReplayService(capturesDir string) (*appreplay.Service, error) {
	store, err := newStore(capturesDir)
	if err != nil {
		return nil, err
	}
	dispatcher := httpreplay.NewClient(&http.Client{})
	return appreplay.NewService(store, dispatcher), nil
}

func newTemplateService(templatesDir string) (*apptemplates.Service, error) {
	localStore, err := templatestore.NewStore(templatesDir)
	if err != nil {
		return nil, err
	}
	cacheStore, err := templatestore.NewCache(filepath.Join(templatesDir, ".index-cache.json"))
	if err != nil {
		return nil, err
	}
	remoteSource, err := httptemplates.NewClient(httptemplates.ClientOptions{})
	if err != nil {
		return nil, err
	}
	replayDispatcher := httpreplay.NewClient(&http.Client{})
	dispatcher := httptemplaterun.NewDispatcher(replayDispatcher)

	return apptemplates.NewService(
		localStore,
		remoteSource,
		cacheStore,
		nil,
		apptemplates.WithDispatcher(dispatcher),
		apptemplates.WithLogger(templatesLogger),
	), nil
}
