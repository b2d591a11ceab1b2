package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"math/rand"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	log "github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/ukydev/equipment-maintenance/internal/auth"
	"github.com/ukydev/equipment-maintenance/internal/db"
	"github.com/ukydev/equipment-maintenance/internal/models"
)

// equipmentSpec seeds one catalog entry. A zero interval means the equipment
// has no recurring maintenance schedule.
type equipmentSpec struct {
	Name      string
	Category  string
	Interval  int
	Frequency models.FrequencyUnit
}

var catalog = []equipmentSpec{
	{"CNC lathe #1", "machining", 3, models.FrequencyMonths},
	{"CNC lathe #2", "machining", 3, models.FrequencyMonths},
	{"Hydraulic press", "forming", 6, models.FrequencyMonths},
	{"Overhead crane", "lifting", 1, models.FrequencyYears},
	{"Air compressor", "utilities", 2, models.FrequencyWeeks},
	{"Conveyor line A", "transport", 30, models.FrequencyDays},
	{"Conveyor line B", "transport", 30, models.FrequencyDays},
	{"Welding robot", "assembly", 6, models.FrequencyMonths},
	{"Forklift 02", "transport", 1, models.FrequencyMonths},
	{"Paint booth fan", "finishing", 0, ""},
}

var teamNames = []string{"Mechanical", "Electrical", "Hydraulics"}

var faultTitles = []string{
	"Hydraulic fluid leak",
	"Spindle bearing noise",
	"Conveyor belt misalignment",
	"Coolant pump overheating",
	"Control panel unresponsive",
	"Worn brake pads on hoist",
	"Compressor pressure drop",
	"Vibration above threshold",
	"Oil filter clogged",
	"Safety guard sensor fault",
}

var faultDescriptions = []string{
	"Reported by floor operator during the morning shift.",
	"Found during routine walkaround.",
	"Alarm raised by the monitoring system.",
	"Recurring issue, third report this quarter.",
}

var workNotes = []string{
	"Inspected on site, ordering replacement parts.",
	"Tightened mounts and re-tested.",
	"Swapped worn component, running test cycle.",
	"Cleaned assembly and re-lubricated.",
	"Waiting for vendor confirmation.",
}

// Weighted so most demo requests are corrective and mid-priority.
var requestTypes = []models.RequestType{
	models.TypeCorrective,
	models.TypeCorrective,
	models.TypeCorrective,
	models.TypePreventive,
	models.TypePredictive,
	models.TypeEmergency,
}

var priorities = []models.Priority{
	models.PriorityLow,
	models.PriorityMedium,
	models.PriorityMedium,
	models.PriorityHigh,
	models.PriorityHigh,
	models.PriorityCritical,
	models.PriorityEmergency,
}

// statusWalk picks where a crew takes a request next. Weights favour the
// happy path so most requests end up completed.
var statusWalk = map[models.Status][]models.Status{
	models.StatusNew:             {models.StatusAssigned, models.StatusAssigned, models.StatusAssigned, models.StatusRejected},
	models.StatusAssigned:        {models.StatusInProgress, models.StatusInProgress, models.StatusInProgress, models.StatusOnHold},
	models.StatusInProgress:      {models.StatusCompleted, models.StatusCompleted, models.StatusWaitingForParts, models.StatusCancelled},
	models.StatusWaitingForParts: {models.StatusInProgress, models.StatusInProgress, models.StatusOnHold},
	models.StatusOnHold:          {models.StatusInProgress, models.StatusInProgress, models.StatusCancelled},
}

func nextStatus(current models.Status) models.Status {
	choices, ok := statusWalk[current]
	if !ok {
		return current
	}
	return choices[rand.Intn(len(choices))]
}

var authToken string

func authorizedPost(url string, contentType string, body *bytes.Buffer) (*http.Response, error) {
	req, err := http.NewRequest(http.MethodPost, url, body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", contentType)
	if authToken != "" {
		req.Header.Set("Authorization", "Bearer "+authToken)
	}
	client := &http.Client{Timeout: 10 * time.Second}
	return client.Do(req)
}

// mintAuthToken signs a manager token locally. It only verifies against an
// API that shares the same JWT_SECRET.
func mintAuthToken() string {
	service, err := auth.NewService()
	if err != nil {
		log.WithError(err).Error("Failed to build auth service")
		return ""
	}
	token, err := service.GenerateToken("simulator", "Crew Simulator", models.RoleManager)
	if err != nil {
		log.WithError(err).Error("Failed to mint simulator token")
		return ""
	}
	return token
}

// seedDirectory writes demo teams and equipment straight into MongoDB. The
// equipment and team directories belong to the enclosing application, so
// there is no API to create them through.
func seedDirectory(ctx context.Context) ([]string, error) {
	client, err := db.ConnectMongo()
	if err != nil {
		return nil, err
	}
	defer client.Disconnect(ctx)

	dbName := os.Getenv("MONGO_DB")
	if dbName == "" {
		dbName = "equipment_maintenance"
	}
	database := client.Database(dbName)
	teams := &db.MongoTeamCollection{Collection: database.Collection("teams")}
	equipment := &db.MongoEquipmentCollection{Collection: database.Collection("equipment")}

	teamIDs := make([]string, 0, len(teamNames))
	for _, name := range teamNames {
		id := primitive.NewObjectID()
		team := models.Team{
			ID:              id,
			Name:            name,
			Specializations: []string{strings.ToLower(name)},
			Members: []models.TeamMember{
				{UserID: strings.ToLower(name) + "-lead", Role: "lead"},
				{UserID: strings.ToLower(name) + "-tech-1", Role: "technician"},
			},
		}
		if err := teams.InsertTeam(ctx, team); err != nil {
			return nil, fmt.Errorf("seed team %s: %w", name, err)
		}
		teamIDs = append(teamIDs, id.Hex())
	}

	equipmentIDs := make([]string, 0, len(catalog))
	for i, spec := range catalog {
		id := primitive.NewObjectID()
		item := models.Equipment{
			ID:            id,
			Name:          spec.Name,
			Category:      spec.Category,
			DefaultTeamID: teamIDs[i%len(teamIDs)],
			Status:        "active",
		}
		if spec.Interval > 0 {
			item.Schedule = models.RecurringSchedule{
				Enabled:   true,
				Type:      models.TypePreventive,
				Interval:  spec.Interval,
				Frequency: spec.Frequency,
			}
		}
		if err := equipment.InsertEquipment(ctx, item); err != nil {
			return nil, fmt.Errorf("seed equipment %s: %w", spec.Name, err)
		}
		equipmentIDs = append(equipmentIDs, id.Hex())
	}

	log.WithFields(log.Fields{
		"teams":     len(teamIDs),
		"equipment": len(equipmentIDs),
	}).Info("Seeded maintenance directory")

	return equipmentIDs, nil
}

func createRequest(apiURL string, equipmentIDs []string) (string, error) {
	title := faultTitles[rand.Intn(len(faultTitles))]
	priority := priorities[rand.Intn(len(priorities))]

	payload := map[string]interface{}{
		"title":            title,
		"description":      faultDescriptions[rand.Intn(len(faultDescriptions))],
		"type":             requestTypes[rand.Intn(len(requestTypes))],
		"priority":         priority,
		"equipment_id":     equipmentIDs[rand.Intn(len(equipmentIDs))],
		"scheduled_at":     time.Now().Add(time.Duration(rand.Intn(72)) * time.Hour).Format(time.RFC3339),
		"duration_minutes": 30 + rand.Intn(180),
	}

	data, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	resp, err := authorizedPost(apiURL+"/requests", "application/json", bytes.NewBuffer(data))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated {
		return "", fmt.Errorf("request creation failed with status: %d", resp.StatusCode)
	}

	var result map[string]interface{}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", fmt.Errorf("failed to decode response: %w", err)
	}

	createdID, ok := result["id"].(string)
	if !ok {
		return "", fmt.Errorf("invalid request ID in response")
	}

	log.WithFields(log.Fields{
		"request_id": createdID,
		"title":      title,
		"priority":   priority,
	}).Info("Created maintenance request")

	return createdID, nil
}

func transitionRequest(apiURL, id string, target models.Status) error {
	data, err := json.Marshal(map[string]string{"status": string(target)})
	if err != nil {
		return err
	}
	resp, err := authorizedPost(apiURL+"/requests/"+id+"/transition", "application/json", bytes.NewBuffer(data))
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("transition failed with status: %d", resp.StatusCode)
	}
	return nil
}

func moveCardOnBoard(apiURL, id string, from, to models.Stage) error {
	data, err := json.Marshal(map[string]string{
		"request_id": id,
		"from":       string(from),
		"to":         string(to),
	})
	if err != nil {
		return err
	}
	resp, err := authorizedPost(apiURL+"/board/move", "application/json", bytes.NewBuffer(data))
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("board move failed with status: %d", resp.StatusCode)
	}
	return nil
}

func appendWorkNote(apiURL, id string) error {
	data, err := json.Marshal(map[string]string{"note": workNotes[rand.Intn(len(workNotes))]})
	if err != nil {
		return err
	}
	resp, err := authorizedPost(apiURL+"/requests/"+id+"/worklog", "application/json", bytes.NewBuffer(data))
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("work note failed with status: %d", resp.StatusCode)
	}
	return nil
}

// card is one open request being walked across the board.
type card struct {
	ID     string
	Status models.Status
}

// advanceCard walks a request one step. Completions go through the board
// endpoint so the drag path gets exercised too; everything else uses a plain
// transition. Returns true once the request is terminal.
func advanceCard(apiURL string, c *card) bool {
	if rand.Intn(3) == 0 {
		if err := appendWorkNote(apiURL, c.ID); err != nil {
			log.WithError(err).WithField("request_id", c.ID).Warn("Work note failed")
		}
	}

	target := nextStatus(c.Status)
	if target == c.Status {
		return models.IsTerminalStatus(c.Status)
	}

	var err error
	if target == models.StatusCompleted {
		err = moveCardOnBoard(apiURL, c.ID, models.StageForStatus(c.Status), models.StageRepaired)
	} else {
		err = transitionRequest(apiURL, c.ID, target)
	}
	if err != nil {
		log.WithError(err).WithFields(log.Fields{
			"request_id": c.ID,
			"to":         target,
		}).Warn("Advance failed")
		return false
	}

	c.Status = target
	log.WithFields(log.Fields{
		"request_id": c.ID,
		"status":     target,
	}).Info("Advanced maintenance request")

	return models.IsTerminalStatus(target)
}

// simulateCrew runs one crew member: report fresh faults, work the open ones.
func simulateCrew(apiURL string, crewID int, equipmentIDs []string, interval time.Duration) {
	log.WithField("crew", crewID).Info("Crew member on shift")

	open := make([]*card, 0, 4)
	tick := time.NewTicker(interval)
	defer tick.Stop()
	for range tick.C {
		// report a fresh fault while the plate is light
		if len(open) < 3 && rand.Intn(2) == 0 {
			id, err := createRequest(apiURL, equipmentIDs)
			if err != nil {
				log.WithError(err).Warn("Failed to create maintenance request")
				continue
			}
			open = append(open, &card{ID: id, Status: models.StatusNew})
			continue
		}
		if len(open) == 0 {
			continue
		}

		i := rand.Intn(len(open))
		if advanceCard(apiURL, open[i]) {
			open = append(open[:i], open[i+1:]...)
		}
	}
}

func main() {
	_ = godotenv.Load()

	// Optional JWT for the protected API; minted locally when absent
	authToken = os.Getenv("SIM_AUTH_TOKEN")
	if authToken == "" {
		authToken = mintAuthToken()
	}

	crewSize := 4
	if val := os.Getenv("SIM_CREW_SIZE"); val != "" {
		if n, err := strconv.Atoi(val); err == nil && n > 0 {
			crewSize = n
		}
	}

	apiURL := os.Getenv("API_BASE_URL")
	if apiURL == "" {
		apiURL = "http://localhost:8080/api"
	}

	interval := 2 * time.Second
	if v := os.Getenv("SIM_TICK_SECONDS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 1 {
			interval = time.Duration(n) * time.Second
		}
	}

	log.WithFields(log.Fields{
		"crew_size": crewSize,
		"api_url":   apiURL,
		"interval":  interval,
	}).Info("Starting maintenance crew simulation")

	equipmentIDs, err := seedDirectory(context.Background())
	if err != nil {
		log.WithError(err).Error("Directory seeding failed. Ensure MongoDB is reachable. Exiting.")
		time.Sleep(2 * time.Second)
		return
	}

	for i := 0; i < crewSize; i++ {
		go simulateCrew(apiURL, i+1, equipmentIDs, interval)
	}

	log.Info("Crew simulation started")
	select {} // Block forever
}
