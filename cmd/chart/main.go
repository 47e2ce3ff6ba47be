// Command chart computes a natal chart locally and prints it as tables.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"AstroAI/internal/astro"
	"AstroAI/internal/domain/models"
	"AstroAI/internal/repository"
	"AstroAI/internal/services/interpretation"
	"AstroAI/internal/services/retrieval"
	"AstroAI/internal/usecase"
	"AstroAI/pkg/config"
	xhttp "AstroAI/pkg/http"
	applogger "AstroAI/pkg/logger"
	"AstroAI/pkg/util"

	"github.com/gookit/color"
	"github.com/olekukonko/tablewriter"
)

func main() {
	configPath := flag.String("config", "", "optional config file; defaults and environment are used otherwise")
	name := flag.String("name", "", "name echoed in the chart")
	date := flag.String("date", "", "birth date, YYYY-MM-DD")
	clock := flag.String("time", "12:00", "local birth time, HH:MM")
	lat := flag.Float64("lat", 0, "latitude, north positive")
	lon := flag.Float64("lon", 0, "longitude, east positive")
	tz := flag.String("tz", "", "hours local time is ahead of UTC; ephemeris.default_tz_offset when empty")
	house := flag.String("house", "P", "house system letter")
	asJSON := flag.Bool("json", false, "print the chart as JSON")
	interpret := flag.Bool("interpret", false, "also print an interpretation from the corpus")
	flag.Parse()

	cfg, err := loadConfig(*configPath)
	if err != nil {
		log.Fatalf("config load failed: %v", err)
	}

	req, err := birthRequest(*name, *date, *clock, *lat, *lon, *tz, *house)
	if err != nil {
		log.Fatalf("%v", err)
	}
	ctx := context.Background()
	if err := xhttp.DefaultAndValidate(ctx, &req); err != nil {
		for _, ve := range xhttp.ValidationErrors(err) {
			fmt.Fprintln(os.Stderr, color.Red.Sprintf("%s: %s", ve.Field, ve.Message))
		}
		os.Exit(2)
	}

	l := applogger.Nop()
	engine := astro.Open(astro.Config{
		EphemerisPath:      cfg.Ephemeris.Path,
		DefaultHouseSystem: cfg.Ephemeris.DefaultHouseSystem,
		Nutation:           cfg.Ephemeris.Nutation,
	}, l, nil)
	charts := usecase.NewChartService(engine,
		usecase.WithDefaultHouseSystem(cfg.Ephemeris.DefaultHouseSystem),
		usecase.WithDefaultTZOffset(cfg.Ephemeris.DefaultTZOffset),
	)
	birth := charts.BirthData(req)
	chart, _ := charts.Compute(ctx, birth)

	if *asJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(chart); err != nil {
			log.Fatalf("encode chart: %v", err)
		}
	} else {
		printChart(chart, engine.Registry().Names())
	}

	if *interpret {
		text, mode, err := interpretLocally(ctx, cfg, charts, birth)
		if err != nil {
			log.Fatalf("interpret: %v", err)
		}
		fmt.Println()
		fmt.Println(color.New(color.FgMagenta, color.OpBold).Render("Interpretation (" + mode + ")"))
		fmt.Println(text)
	}
}

func loadConfig(path string) (*config.Config, error) {
	if path != "" {
		return config.LoadWithEnv(path)
	}
	cfg := config.Default()
	if err := cfg.ApplyEnv(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func birthRequest(name, date, clock string, lat, lon float64, tz, house string) (models.BirthRequest, error) {
	if date == "" {
		return models.BirthRequest{}, fmt.Errorf("-date is required")
	}
	t, err := time.Parse("2006-01-02 15:04", date+" "+clock)
	if err != nil {
		return models.BirthRequest{}, fmt.Errorf("parse -date/-time: %w", err)
	}
	var offset *float64
	if tz != "" {
		v, err := strconv.ParseFloat(tz, 64)
		if err != nil {
			return models.BirthRequest{}, fmt.Errorf("parse -tz: %w", err)
		}
		offset = &v
	}
	return models.BirthRequest{
		Name:          name,
		Year:          t.Year(),
		Month:         int(t.Month()),
		Day:           t.Day(),
		Hour:          t.Hour(),
		Minute:        t.Minute(),
		Latitude:      lat,
		Longitude:     lon,
		TZOffsetHours: offset,
		HouseSystem:   strings.ToUpper(house),
	}, nil
}

func printChart(chart models.NatalChart, order []string) {
	title := fmt.Sprintf("Natal chart %s  JD(UT) %.5f  houses %s", chart.Name, chart.JulianDayUT, chart.HouseSystem)
	fmt.Println(color.New(color.FgCyan, color.OpBold).Render(strings.TrimSpace(title)))
	fmt.Println(color.Gray.Sprint("id " + chart.ID))
	fmt.Println()

	bodies := newTable([]string{"Body", "Sign", "Degree", "House", "Speed"})
	for _, n := range order {
		p, ok := chart.Planets[n]
		if !ok {
			continue
		}
		if !p.Available {
			bodies.Append([]string{n, color.Yellow.Sprint("unavailable"), "", "", ""})
			continue
		}
		bodies.Append([]string{n, p.SignName(), fmtDeg(p.DegInSign), fmtHouse(p.House), fmtSpeed(p.LonSpeed)})
	}
	bodies.Render()
	fmt.Println()

	points := newTable([]string{"Point", "Sign", "Degree", "Longitude"})
	for _, n := range astro.PointOrder {
		if p, ok := chart.Points[n]; ok {
			points.Append([]string{n, p.Sign, util.FormatDegrees(p.DegInSign), fmt.Sprintf("%.2f°", p.Longitude)})
		}
	}
	points.Render()
	fmt.Println()

	if len(chart.Houses.Cusps) == 12 {
		cusps := newTable([]string{"House", "Cusp"})
		for i, c := range chart.Houses.Cusps {
			cusps.Append([]string{util.Ordinal(i + 1), fmt.Sprintf("%.2f°", c)})
		}
		cusps.Render()
	} else {
		fmt.Println(color.Yellow.Sprint("houses unavailable"))
	}
	fmt.Println()

	aspects := newTable([]string{"P1", "Aspect", "P2", "Orb"})
	for _, a := range interpretation.TightestAspects(chart.Aspects, 20) {
		aspects.Append([]string{a.P1, a.Aspect, a.P2, util.FormatDegrees(a.Orb)})
	}
	aspects.Render()
}

func newTable(header []string) *tablewriter.Table {
	t := tablewriter.NewWriter(os.Stdout)
	t.SetHeader(header)
	t.SetAutoWrapText(false)
	t.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	t.SetAlignment(tablewriter.ALIGN_LEFT)
	t.SetBorder(false)
	t.SetCenterSeparator("")
	t.SetColumnSeparator("")
	t.SetRowSeparator("")
	t.SetHeaderLine(false)
	t.SetTablePadding("\t")
	return t
}

func fmtDeg(v *float64) string {
	if v == nil {
		return ""
	}
	return util.FormatDegrees(*v)
}

func fmtHouse(h *int) string {
	if h == nil {
		return "-"
	}
	return fmt.Sprint(*h)
}

func fmtSpeed(v *float64) string {
	if v == nil {
		return ""
	}
	s := fmt.Sprintf("%+.4f", *v)
	if *v < 0 {
		return color.Red.Sprint(s + " R")
	}
	return s
}

// interpretLocally indexes the corpus into an in-memory store and runs the full interpretation path.
func interpretLocally(ctx context.Context, cfg *config.Config, charts *usecase.ChartService, birth models.BirthData) (string, string, error) {
	db, err := repository.OpenBadger("", nil)
	if err != nil {
		return "", "", err
	}
	chunks := repository.NewBadgerChunkStore(db)
	defer chunks.Close()

	retriever := retrieval.NewRetriever(chunks, cfg.Retrieval.CorpusDir, retrieval.WithIndexConfig(retrieval.IndexConfig{
		ChunkSize:    cfg.Retrieval.ChunkSize,
		ChunkOverlap: cfg.Retrieval.ChunkOverlap,
		MinChars:     cfg.Retrieval.MinChars,
	}))
	llm := interpretation.NewOpenAIClient(interpretation.OpenAIConfig{
		APIKey:      cfg.LLM.APIKey,
		BaseURL:     cfg.LLM.BaseURL,
		Model:       cfg.LLM.Model,
		Temperature: cfg.LLM.Temperature,
		MaxTokens:   cfg.LLM.MaxTokens,
		MaxPassages: cfg.LLM.MaxPassages,
		Timeout:     cfg.LLM.Timeout,
		Retries:     cfg.LLM.Retries,
	})
	svc := usecase.NewInterpretService(charts, retriever, retrieval.NewPlacementFinder(cfg.Retrieval.CorpusDir),
		interpretation.NewService(llm), usecase.WithTopK(cfg.Retrieval.TopK))

	res, err := svc.Interpret(ctx, birth)
	if err != nil {
		return "", "", err
	}
	return res.Interpretation, res.Mode, nil
}
