package main

import (
	"bytes"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"fightcancer/internal/schemas"
	"fightcancer/internal/survey"
)

// answers is the scripted respondent, one map per step.
var answers = map[survey.Step]map[string]any{
	survey.StepPersonal: {
		"nickname": "Smoke", "weight_kg": 70.0, "height_m": 1.70, "age": 30,
	},
	survey.StepLifestyle: {
		"smoking": "Jamais", "drinks_per_month": 7, "sunburns": 0, "sleep_hours": 7.0,
	},
	survey.StepHealth: {
		"diabetes": "Non", "high_blood_pressure": "Non", "heart_condition": "Non",
		"lung_disease": "Non", "depression": "Non", "chronic_pain": "Non",
		"stress": "Très faible, je suis relax", "general_health": "Bon",
	},
	survey.StepNutritionHome: {
		"fruit_portions": "2 à 3 portions", "vegetable_portions": "2 à 3 portions", "exercise_days": "3",
		"income": "1470€ à 2569€ mensuel", "education": "Lycée / BAC", "children": 1, "household": 2,
		"medical_bills_difficulty": "Jamais", "skipped_meals": "Jamais", "ethnicity": "Blanc",
	},
}

func main() {
	base := envOr("API_BASE_URL", "http://localhost:8000")
	token := envOr("API_TOKEN", "dev-secret-token")

	baseFlag := flag.String("base", base, "API base URL (e.g., http://localhost:8000)")
	tokenFlag := flag.String("token", token, "API token for admin endpoints")
	trainData := flag.String("train", "", "Dataset path or s3:// ref; when set, also enqueue a training run")
	waitTrain := flag.Duration("wait-train", 2*time.Minute, "How long to poll for the training run")
	flag.Parse()

	httpc := &http.Client{Timeout: 12 * time.Second}

	// 1) Model status
	var status schemas.ModelOut
	if err := getJSON(httpc, *baseFlag+"/model", "", &status); err != nil {
		fatalf("model status: %v", err)
	}
	fmt.Printf("✅ Model: version=%s degraded=%t features=%d\n", status.Version, status.Degraded, len(status.Features))

	// 2) Create session
	var created schemas.CreateSessionResponse
	if err := postJSON(httpc, *baseFlag+"/sessions", "", nil, &created); err != nil {
		fatalf("create session: %v", err)
	}
	fmt.Printf("✅ Created session: id=%s\n", created.SessionID)

	// 3) Walk the steps
	sessURL := fmt.Sprintf("%s/sessions/%s", *baseFlag, created.SessionID)
	for _, st := range survey.Steps {
		var out schemas.SessionOut
		if err := postJSON(httpc, sessURL+"/steps/"+string(st), created.SessionToken, answers[st], &out); err != nil {
			fatalf("submit %s: %v", st, err)
		}
		fmt.Printf("✅ Submitted %s -> %s\n", st, out.State)
	}

	// 4) Result
	var res schemas.ResultOut
	if err := getJSON(httpc, sessURL+"/result", created.SessionToken, &res); err != nil {
		fatalf("result: %v", err)
	}
	fmt.Printf("✅ Score %d (%s), degraded=%t\n   %s\n", res.Score, res.Tier, res.Degraded, res.Headline)

	// 5) Reset
	var reset schemas.SessionOut
	if err := postJSON(httpc, sessURL+"/reset", created.SessionToken, nil, &reset); err != nil {
		fatalf("reset: %v", err)
	}
	if reset.State != survey.StepPersonal || len(reset.Answers) != 0 {
		fatalf("reset left state=%s answers=%d", reset.State, len(reset.Answers))
	}
	fmt.Println("✅ Reset session")

	if *trainData != "" {
		smokeTraining(httpc, *baseFlag, *tokenFlag, *trainData, *waitTrain)
	}

	fmt.Printf("🎉 Smoke run OK. SessionID=%s\n", created.SessionID)
}

func smokeTraining(httpc *http.Client, base, token, data string, wait time.Duration) {
	var run schemas.TrainingRunOut
	req := schemas.TrainingRequest{DataRef: data, Trees: 20}
	if err := postJSON(httpc, base+"/training", token, req, &run); err != nil {
		fatalf("enqueue training: %v", err)
	}
	fmt.Printf("✅ Enqueued training run %s\n", run.ID)

	deadline := time.Now().Add(wait)
	for {
		if err := getJSON(httpc, base+"/training/"+run.ID, token, &run); err != nil {
			fatalf("get training run: %v", err)
		}
		if run.Status == "succeeded" || run.Status == "failed" {
			fmt.Printf("✅ Training %s: %s\n", run.Status, compactJSON(run))
			return
		}
		if time.Now().After(deadline) {
			fmt.Printf("ℹ️  Training still %s after %s\n", run.Status, wait)
			return
		}
		time.Sleep(5 * time.Second)
	}
}

// --- helpers ---

func envOr(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

func postJSON(c *http.Client, url, bearer string, body any, out any) error {
	var r io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return err
		}
		r = bytes.NewReader(b)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 12*time.Second)
	defer cancel()
	req, _ := http.NewRequestWithContext(ctx, http.MethodPost, url, r)
	req.Header.Set("Content-Type", "application/json")
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}
	res, err := c.Do(req)
	if err != nil {
		return err
	}
	defer res.Body.Close()
	if res.StatusCode/100 != 2 {
		b, _ := io.ReadAll(res.Body)
		return fmt.Errorf("POST %s -> %d: %s", url, res.StatusCode, string(b))
	}
	if out != nil {
		return json.NewDecoder(res.Body).Decode(out)
	}
	return nil
}

func getJSON(c *http.Client, url, bearer string, out any) error {
	ctx, cancel := context.WithTimeout(context.Background(), 12*time.Second)
	defer cancel()
	req, _ := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}
	res, err := c.Do(req)
	if err != nil {
		return err
	}
	defer res.Body.Close()
	if res.StatusCode/100 != 2 {
		b, _ := io.ReadAll(res.Body)
		return fmt.Errorf("GET %s -> %d: %s", url, res.StatusCode, string(b))
	}
	return json.NewDecoder(res.Body).Decode(out)
}

func compactJSON(v any) string {
	b, _ := json.MarshalIndent(v, "", "  ")
	return string(b)
}

func fatalf(format string, args ...any) {
	fmt.Printf("❌ "+format+"\n", args...)
	os.Exit(1)
}
