package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/jrsteele09/funeral-coordinator/internal/config"
	apperrors "github.com/jrsteele09/funeral-coordinator/internal/errors"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

const redacted = "[REDACTED]"

var errIntegrationNotConfigured = errors.New("canva integration is not configured")

// configReport is what `config check` prints. Secrets are never included.
type configReport struct {
	Configured    bool     `yaml:"configured"`
	ClientID      string   `yaml:"clientId,omitempty"`
	ClientSecret  string   `yaml:"clientSecret,omitempty"`
	SessionSecret string   `yaml:"sessionSecret,omitempty"`
	RedirectURIs  []string `yaml:"redirectUris,omitempty"`
	AuthorizeURL  string   `yaml:"authorizeUrl,omitempty"`
	TokenURL      string   `yaml:"tokenUrl,omitempty"`
	APIBaseURL    string   `yaml:"apiBaseUrl,omitempty"`
	Scopes        []string `yaml:"scopes,omitempty"`
	JWKSURL       string   `yaml:"jwksUrl"`
	JWTIssuer     string   `yaml:"jwtIssuer"`
	Missing       []string `yaml:"missing,omitempty"`
	Problems      []string `yaml:"problems,omitempty"`
}

func newConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect the service configuration",
	}
	cmd.AddCommand(newConfigCheckCmd())
	return cmd
}

func newConfigCheckCmd() *cobra.Command {
	var output string
	cmd := &cobra.Command{
		Use:   "check",
		Short: "Resolve the Canva integration configuration from the environment",
		Long: `Resolves the CANVA_* environment variables exactly as the server does and
prints the result with secrets redacted. Exits non-zero when the integration
is not configured.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			report := buildConfigReport(os.LookupEnv)
			if err := renderConfigReport(cmd.OutOrStdout(), report, output); err != nil {
				return err
			}
			if !report.Configured {
				return errIntegrationNotConfigured
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "table", "output format: table or yaml")
	return cmd
}

func buildConfigReport(lookup config.LookupFunc) configReport {
	cfg, err := config.ResolveIntegration(lookup)
	if err != nil {
		correlation := config.ResolveCorrelation(lookup)
		report := configReport{
			JWKSURL:   correlation.JWKSURL,
			JWTIssuer: correlation.JWTIssuer,
		}
		var cfgErr *config.ConfigurationError
		if apperrors.As(err, &cfgErr) {
			report.Missing = cfgErr.Missing
			report.Problems = cfgErr.Problems
		} else {
			report.Problems = []string{err.Error()}
		}
		return report
	}

	return configReport{
		Configured:    true,
		ClientID:      cfg.ClientID,
		ClientSecret:  redact(cfg.ClientSecret),
		SessionSecret: redact(cfg.SessionSecret),
		RedirectURIs:  cfg.RedirectURIs,
		AuthorizeURL:  cfg.AuthorizeURL,
		TokenURL:      cfg.TokenURL,
		APIBaseURL:    cfg.APIBaseURL,
		Scopes:        cfg.Scopes,
		JWKSURL:       cfg.JWKSURL,
		JWTIssuer:     cfg.JWTIssuer,
	}
}

func redact(secret string) string {
	if secret == "" {
		return ""
	}
	return redacted
}

func renderConfigReport(w io.Writer, report configReport, format string) error {
	switch strings.ToLower(format) {
	case "yaml", "yml":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(report); err != nil {
			return fmt.Errorf("[config check] encode yaml: %w", err)
		}
		return enc.Close()
	case "table", "":
		renderConfigTable(w, report)
		return nil
	default:
		return fmt.Errorf("[config check] unknown output format %q", format)
	}
}

func renderConfigTable(w io.Writer, report configReport) {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleRounded)
	t.AppendHeader(table.Row{"SETTING", "VALUE"})

	status := text.FgGreen.Sprint("configured")
	if !report.Configured {
		status = text.FgRed.Sprint("not configured")
	}
	t.AppendRow(table.Row{"Canva integration", status})

	rows := []struct {
		name  string
		value string
	}{
		{config.CanvaClientIDVar, report.ClientID},
		{config.CanvaClientSecretVar, report.ClientSecret},
		{config.CanvaSessionSecretVar, report.SessionSecret},
		{config.CanvaRedirectURIVar, strings.Join(report.RedirectURIs, "\n")},
		{config.CanvaAuthorizeURLVar, report.AuthorizeURL},
		{config.CanvaTokenURLVar, report.TokenURL},
		{config.CanvaAPIURLVar, report.APIBaseURL},
		{config.CanvaScopesVar, strings.Join(report.Scopes, " ")},
		{config.CanvaJWKSURLVar, report.JWKSURL},
		{config.CanvaJWTIssuerVar, report.JWTIssuer},
	}
	for _, row := range rows {
		if row.value != "" {
			t.AppendRow(table.Row{row.name, row.value})
		}
	}
	for _, missing := range report.Missing {
		t.AppendRow(table.Row{missing, text.FgYellow.Sprint("missing")})
	}
	for _, problem := range report.Problems {
		t.AppendRow(table.Row{"problem", text.FgYellow.Sprint(problem)})
	}
	t.Render()
}
