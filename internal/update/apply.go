package update

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"
)

// Apply installs a downloaded executable. On Windows the swap happens via
// a detached batch script that waits for this process to exit; the caller
// must quit the application afterwards. On other platforms the download is
// left in place and reported, matching the development-run behavior of the
// packaged original.
//
// The returned bool is true when the caller should exit for the swap.
func Apply(downloadedExe, assetName string) (bool, error) {
	if runtime.GOOS != "windows" {
		return false, nil
	}

	currentExe, err := os.Executable()
	if err != nil {
		return false, fmt.Errorf("resolve current executable: %w", err)
	}
	currentExe, err = filepath.EvalSymlinks(currentExe)
	if err != nil {
		return false, fmt.Errorf("resolve current executable: %w", err)
	}

	launchName := strings.TrimSpace(assetName)
	if launchName == "" {
		launchName = filepath.Base(downloadedExe)
	}
	launchExe := filepath.Join(filepath.Dir(currentExe), launchName)
	replaceInPlace := strings.EqualFold(launchExe, currentExe)

	stagedNew := replaceExt(currentExe, ".new.exe")
	backupExe := replaceExt(currentExe, ".bak.exe")

	if replaceInPlace {
		if err := copyFile(downloadedExe, stagedNew); err != nil {
			return false, fmt.Errorf("stage update: %w", err)
		}
	}

	batPath := filepath.Join(filepath.Dir(downloadedExe), "apply_update.bat")
	batContent := buildUpdateBat(batParams{
		currentExe:     currentExe,
		launchExe:      launchExe,
		downloadedExe:  downloadedExe,
		stagedNewExe:   stagedNew,
		backupExe:      backupExe,
		pid:            os.Getpid(),
		replaceInPlace: replaceInPlace,
	})
	if err := os.WriteFile(batPath, []byte(batContent), 0o644); err != nil {
		return false, fmt.Errorf("write update script: %w", err)
	}

	cmd := exec.Command("cmd", "/d", "/q", "/c", batPath)
	if err := cmd.Start(); err != nil {
		return false, fmt.Errorf("start update script: %w", err)
	}

	return true, nil
}

func replaceExt(path, newExt string) string {
	return strings.TrimSuffix(path, filepath.Ext(path)) + newExt
}

func copyFile(src, dst string) error {
	data, err := os.ReadFile(src)
	if err != nil {
		return err
	}
	return os.WriteFile(dst, data, 0o755)
}

type batParams struct {
	currentExe     string
	launchExe      string
	downloadedExe  string
	stagedNewExe   string
	backupExe      string
	pid            int
	replaceInPlace bool
}

// buildUpdateBat emits the swap script: wait for the running PID to exit,
// replace the executable (with a .bak backup), relaunch, then clean up and
// self-delete.
func buildUpdateBat(p batParams) string {
	replaceMode := "0"
	if p.replaceInPlace {
		replaceMode = "1"
	}

	var b strings.Builder
	b.WriteString("@echo off\n")
	b.WriteString("setlocal EnableDelayedExpansion\n")
	fmt.Fprintf(&b, "set \"CURRENT=%s\"\n", p.currentExe)
	fmt.Fprintf(&b, "set \"LAUNCH=%s\"\n", p.launchExe)
	fmt.Fprintf(&b, "set \"DOWNLOADED=%s\"\n", p.downloadedExe)
	fmt.Fprintf(&b, "set \"STAGED_NEW=%s\"\n", p.stagedNewExe)
	fmt.Fprintf(&b, "set \"BACKUP=%s\"\n", p.backupExe)
	fmt.Fprintf(&b, "set \"PID=%d\"\n", p.pid)
	fmt.Fprintf(&b, "set \"REPLACE_MODE=%s\"\n", replaceMode)
	b.WriteString("for /L %%i in (1,1,90) do (\n")
	b.WriteString("  tasklist /FI \"PID eq %PID%\" | findstr /I \"%PID%\" >nul\n")
	b.WriteString("  if errorlevel 1 goto replace\n")
	b.WriteString("  timeout /t 1 /nobreak >nul\n")
	b.WriteString(")\n")
	b.WriteString(":replace\n")
	b.WriteString("timeout /t 3 /nobreak >nul\n")
	b.WriteString("set \"REPLACED=0\"\n")
	b.WriteString("if \"%REPLACE_MODE%\"==\"1\" (\n")
	b.WriteString("  for /L %%i in (1,1,30) do (\n")
	b.WriteString("    if exist \"%BACKUP%\" del /f /q \"%BACKUP%\" >nul 2>nul\n")
	b.WriteString("    if exist \"%CURRENT%\" move /y \"%CURRENT%\" \"%BACKUP%\" >nul 2>nul\n")
	b.WriteString("    if exist \"%STAGED_NEW%\" move /y \"%STAGED_NEW%\" \"%CURRENT%\" >nul 2>nul\n")
	b.WriteString("    if exist \"%CURRENT%\" (\n")
	b.WriteString("      set \"REPLACED=1\"\n")
	b.WriteString("      goto launch\n")
	b.WriteString("    )\n")
	b.WriteString("    timeout /t 1 /nobreak >nul\n")
	b.WriteString("  )\n")
	b.WriteString(") else (\n")
	b.WriteString("  for /L %%i in (1,1,30) do (\n")
	b.WriteString("    if exist \"%DOWNLOADED%\" copy /y \"%DOWNLOADED%\" \"%LAUNCH%\" >nul 2>nul\n")
	b.WriteString("    if exist \"%LAUNCH%\" (\n")
	b.WriteString("      set \"REPLACED=1\"\n")
	b.WriteString("      goto launch\n")
	b.WriteString("    )\n")
	b.WriteString("    timeout /t 1 /nobreak >nul\n")
	b.WriteString("  )\n")
	b.WriteString(")\n")
	b.WriteString(":launch\n")
	b.WriteString("if \"%REPLACED%\"==\"1\" (\n")
	b.WriteString("  timeout /t 5 /nobreak >nul\n")
	b.WriteString("  if \"%REPLACE_MODE%\"==\"1\" (\n")
	b.WriteString("    start \"\" /D \"%~dp0\" \"%CURRENT%\"\n")
	b.WriteString("  ) else (\n")
	b.WriteString("    if /I NOT \"%CURRENT%\"==\"%LAUNCH%\" if exist \"%CURRENT%\" del /f /q \"%CURRENT%\" >nul 2>nul\n")
	b.WriteString("    start \"\" /D \"%~dp0\" \"%LAUNCH%\"\n")
	b.WriteString("  )\n")
	b.WriteString(")\n")
	b.WriteString("if exist \"%BACKUP%\" del /f /q \"%BACKUP%\" >nul 2>nul\n")
	b.WriteString("if exist \"%DOWNLOADED%\" del /f /q \"%DOWNLOADED%\" >nul 2>nul\n")
	b.WriteString("if exist \"%STAGED_NEW%\" del /f /q \"%STAGED_NEW%\" >nul 2>nul\n")
	b.WriteString("timeout /t 1 /nobreak >nul\n")
	b.WriteString("del /f /q \"%~f0\"\n")

	return b.String()
}
