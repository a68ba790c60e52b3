// certident imprime el CN del titular de un certificado A1 para copiarlo en IDENT_CERT.
package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/jhoicas/portal-nfse/internal/infrastructure/certificate"
	"github.com/jhoicas/portal-nfse/pkg/config"
)

func main() {
	cmd := &cobra.Command{
		Use:   "certident <arquivo.pfx> [senha]",
		Short: "Mostra o nome do titular (IDENT_CERT) de um certificado A1",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			password := ""
			if len(args) == 2 {
				password = args[1]
			} else if cfg, err := config.Load(); err == nil {
				password = cfg.Portal.CertPassword
			}
			return run(cmd, args[0], password)
		},
		SilenceUsage: true,
	}
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func run(cmd *cobra.Command, path, password string) error {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "📂 Lendo: %s\n", path)

	info, err := certificate.Load(path, password)
	if err != nil {
		fmt.Fprintln(out, "❌ Não foi possível abrir o certificado (arquivo, senha ou formato).")
		return err
	}

	fmt.Fprintf(out, "✅ IDENT_CERT: %s\n", info.CommonName)
	if info.TaxID != "" {
		fmt.Fprintf(out, "   Titular: %s  |  Documento: %s\n", info.Holder, info.TaxID)
	}
	fmt.Fprintf(out, "   Emissor: %s  |  Série: %s\n", info.Issuer, info.Serial)
	fmt.Fprintf(out, "   Validade: %s\n", info.NotAfter.Format("02/01/2006"))
	if info.Expired(time.Now()) {
		fmt.Fprintln(out, "⚠️  Certificado vencido: o portal vai recusar o acesso.")
	}
	return nil
}
