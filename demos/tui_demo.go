// Demo program to showcase the easlog phase browser with a realistic Android build.
package main

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"easlog/src/aggregate"
	"easlog/src/artifact"
	"easlog/src/provider"
	"easlog/src/tui"
)

// fragments serves log fragments from memory.
type fragments map[string]string

func (f fragments) Fetch(ctx context.Context, url string) (string, error) {
	body, ok := f[url]
	if !ok {
		return "", fmt.Errorf("fragment %s: 404 Not Found", url)
	}
	return body, nil
}

func main() {
	fmt.Println("Generating sample build logs...")
	rec, frags := generateSampleBuild()

	dir, err := os.MkdirTemp("", "easlog-demo")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error creating output dir: %v\n", err)
		os.Exit(1)
	}
	saver, err := artifact.NewDirSaver(dir)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error creating saver: %v\n", err)
		os.Exit(1)
	}

	agg := aggregate.New(frags, nil, aggregate.Options{StripANSI: true})
	load := func() (*provider.BuildRecord, *aggregate.Result, error) {
		time.Sleep(700 * time.Millisecond) // let the spinner show
		return rec, agg.Run(context.Background(), rec.LogFragmentURLs), nil
	}
	save := func(rec *provider.BuildRecord, document string) (string, error) {
		path, _, err := saver.Save(artifact.LogsFilename(rec), strings.NewReader(document))
		return path, err
	}

	if _, err := tea.NewProgram(tui.NewMainModel(load, save), tea.WithAltScreen()).Run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error running TUI: %v\n", err)
		os.Exit(1)
	}
}

func line(phase, ts, msg string) string {
	return fmt.Sprintf(`{"phase":%q,"time":%q,"msg":%q}`, phase, ts, msg)
}

func generateSampleBuild() (*provider.BuildRecord, fragments) {
	const base = "https://logs.example/fragments/"

	frags := fragments{
		base + "0": strings.Join([]string{
			line("SPIN_UP_BUILDER", "2026-10-18T09:00:01.120Z", "Preparing worker n2-standard-4"),
			line("SPIN_UP_BUILDER", "2026-10-18T09:00:14.482Z", "Worker ready"),
			line("READ_PACKAGE_JSON", "2026-10-18T09:00:15.002Z", "Using package.json from project root"),
			line("INSTALL_DEPENDENCIES", "2026-10-18T09:00:15.311Z", "Running \"npm ci\" in /home/expo/workingdir/build"),
			line("INSTALL_DEPENDENCIES", "2026-10-18T09:01:02.904Z", "\x1b[33mnpm warn\x1b[0m deprecated inflight@1.0.6: This module is not supported"),
			`not a json line`,
			line("INSTALL_DEPENDENCIES", "2026-10-18T09:01:40.017Z", "added 1342 packages in 1m"),
		}, "\n"),
		base + "1": strings.Join([]string{
			line("PREBUILD", "2026-10-18T09:01:41.450Z", "Running \"expo prebuild --platform android --no-install\""),
			line("PREBUILD", "2026-10-18T09:01:52.733Z", "✔ Finished prebuild"),
			line("RUN_GRADLEW", "2026-10-18T09:01:53.010Z", "Running 'gradlew :app:bundleRelease' in /home/expo/workingdir/build/android"),
			line("RUN_GRADLEW", "2026-10-18T09:04:11.208Z", "> Task :app:compileReleaseKotlin"),
			line("RUN_GRADLEW", "2026-10-18T09:06:45.871Z", "w: file:///home/expo/workingdir/build/android/app/src/main/java/com/acme/shop/MainApplication.kt:42:9 'getter for isNewArchEnabled: Boolean' is deprecated. Deprecated in Java"),
			line("RUN_GRADLEW", "2026-10-18T09:09:30.005Z", "BUILD SUCCESSFUL in 7m 36s"),
		}, "\n"),
		base + "2": strings.Join([]string{
			line("UPLOAD_APPLICATION_ARCHIVE", "2026-10-18T09:09:35.660Z", "Application archive: android/app/build/outputs/bundle/release/app-release.aab (48.2 MB)"),
			line("UPLOAD_APPLICATION_ARCHIVE", "2026-10-18T09:09:41.102Z", "Uploaded application archive"),
			`{"time":"2026-10-18T09:09:41.500Z","msg":"Build finished"}`,
		}, "\n"),
	}

	rec := &provider.BuildRecord{
		ID:              "3f1c2b9e-8d7a-4c6b-9e5f-0a1b2c3d4e5f",
		Slug:            "shop",
		AppVersion:      "2.4.0",
		AppBuildVersion: "118",
		BuildProfile:    "production",
		Platform:        "ANDROID",
		LogFragmentURLs: []string{base + "0", base + "1", base + "2", base + "missing"},
		ArchiveURL:      "https://files.example/shop.aab",
	}
	return rec, frags
}
