// seed aprovisiona las ubicaciones conocidas de los flujos de pedidos y, opcionalmente,
// carga un catálogo de productos desde CSV (id,code,name) para entornos locales.
//
// Uso: go run ./cmd/seed [-products catalogo.csv] [-latin1]
// -latin1 decodifica el CSV como ISO-8859-1 (exportaciones de hojas de cálculo antiguas).
package main

import (
	"context"
	"encoding/csv"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/transform"

	"github.com/jhoicas/inventario-ledger/internal/application/usecase"
	"github.com/jhoicas/inventario-ledger/internal/domain/entity"
	"github.com/jhoicas/inventario-ledger/internal/infrastructure/postgres"
	"github.com/jhoicas/inventario-ledger/pkg/config"
	"github.com/jhoicas/inventario-ledger/pkg/logger"
)

func main() {
	productsPath := flag.String("products", "", "CSV de productos (id,code,name)")
	latin1 := flag.Bool("latin1", false, "el CSV está en ISO-8859-1")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Cargar configuración: %v\n", err)
		os.Exit(1)
	}
	log := logger.New(logger.Config{Env: cfg.App.Env, Level: cfg.App.LogLevel, Service: cfg.App.Name + "-seed"})

	ctx := context.Background()
	pool, err := postgres.NewPool(ctx, cfg.DB)
	if err != nil {
		log.Fatal().Err(err).Msg("conexión a PostgreSQL")
	}
	defer pool.Close()

	if err := postgres.EnsureSchema(ctx, pool); err != nil {
		log.Fatal().Err(err).Msg("esquema del ledger")
	}

	if *productsPath != "" {
		products, err := readProducts(*productsPath, *latin1)
		if err != nil {
			log.Fatal().Err(err).Str("path", *productsPath).Msg("leer catálogo")
		}
		n, err := postgres.UpsertProducts(ctx, pool, products)
		if err != nil {
			log.Fatal().Err(err).Msg("cargar catálogo")
		}
		log.Info().Int("products", n).Msg("catálogo cargado")
	}

	specs := make([]entity.LocationSpec, 0, len(cfg.Ledger.Locations))
	for _, role := range []string{config.RoleBranch, config.RolePendingOnlineExit, config.RoleCustomerDelivered} {
		l := cfg.Ledger.Locations[role]
		specs = append(specs, entity.LocationSpec{Code: l.Code, Name: l.Name, Description: l.Description})
	}
	locationUC := usecase.NewLocationUseCase(
		postgres.NewLocationRepository(pool), postgres.NewTxRunner(pool), nil, log.Component("locations"),
	)
	ids, err := locationUC.EnsureLocations(ctx, specs)
	if err != nil {
		log.Fatal().Err(err).Msg("aprovisionar ubicaciones")
	}
	for _, s := range specs {
		fmt.Printf("%-28s %s\n", s.Code, ids[s.Code])
	}
}

// readProducts lee filas id,code,name. Una primera fila con "id" se toma como encabezado.
func readProducts(path string, latin1 bool) ([]entity.Product, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var src io.Reader = f
	if latin1 {
		src = transform.NewReader(f, charmap.ISO8859_1.NewDecoder())
	}
	r := csv.NewReader(src)
	r.FieldsPerRecord = 3
	r.TrimLeadingSpace = true

	var out []entity.Product
	for line := 1; ; line++ {
		rec, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}
		if line == 1 && strings.EqualFold(strings.TrimSpace(rec[0]), "id") {
			continue
		}
		id, name := strings.TrimSpace(rec[0]), strings.TrimSpace(rec[2])
		if id == "" || name == "" {
			return nil, fmt.Errorf("línea %d: id y name son requeridos", line)
		}
		out = append(out, entity.Product{ID: id, Code: strings.TrimSpace(rec[1]), Name: name})
	}
	return out, nil
}
