package analytics

import (
	"context"
	"math"
	"sort"

	"github.com/imanima/InsightJourney-backend-sub000/domain/graph"
	"github.com/imanima/InsightJourney-backend-sub000/domain/insights"
)

// transitionMatrix counts topic B immediately following topic A across
// consecutive sessions.
type transitionMatrix map[string]map[string]int

// buildTransitions walks consecutive session pairs in date order and counts
// every topic transition between their topic sets.
func buildTransitions(ordered []*graph.Session, topicsBySession map[string]map[string]bool) transitionMatrix {
	m := make(transitionMatrix)
	for i := 0; i+1 < len(ordered); i++ {
		from := topicsBySession[ordered[i].ID]
		to := topicsBySession[ordered[i+1].ID]
		for a := range from {
			row, ok := m[a]
			if !ok {
				row = make(map[string]int)
				m[a] = row
			}
			for b := range to {
				row[b]++
			}
		}
	}
	return m
}

// nextProbabilities turns one row of counts into probabilities.
func (m transitionMatrix) nextProbabilities(topic string) map[string]float64 {
	row := m[topic]
	total := 0
	for _, c := range row {
		total += c
	}
	if total == 0 {
		return nil
	}
	probs := make(map[string]float64, len(row))
	for next, count := range row {
		probs[next] = float64(count) / float64(total)
	}
	return probs
}

// propagate convolves a topic distribution through the matrix for the given
// number of steps (standard Markov chain forward propagation), renormalizing
// each step so rows with no outgoing transitions do not drain mass.
func (m transitionMatrix) propagate(dist map[string]float64, steps int) map[string]float64 {
	cur := dist
	for step := 0; step < steps; step++ {
		next := make(map[string]float64)
		for topic, p := range cur {
			for target, tp := range m.nextProbabilities(topic) {
				next[target] += p * tp
			}
		}
		total := 0.0
		for _, p := range next {
			total += p
		}
		if total == 0 {
			return nil
		}
		for topic := range next {
			next[topic] /= total
		}
		cur = next
	}
	return cur
}

// PredictFutureFocus predicts the next sessions' likely topics from a
// first-order Markov model over consecutive sessions' topic sets. Requires at
// least 3 sessions; returns nil otherwise.
func (s *Service) PredictFutureFocus(ctx context.Context, userID string) (*insights.Prediction, error) {
	return s.predict(ctx, userID, 1)
}

// PredictFutureFocusSteps is the longer-horizon variant: it convolves the
// probability distribution through the transition matrix steps times.
func (s *Service) PredictFutureFocusSteps(ctx context.Context, userID string, steps int) (*insights.Prediction, error) {
	if steps < 1 {
		steps = 1
	}
	return s.predict(ctx, userID, steps)
}

func (s *Service) predict(ctx context.Context, userID string, steps int) (*insights.Prediction, error) {
	data, err := s.load(ctx, userID)
	if err != nil {
		return nil, err
	}
	if len(data.sessions) < 3 {
		return nil, nil
	}

	topicsBySession := data.topicsBySession()
	matrix := buildTransitions(data.sessions, topicsBySession)

	current := topicsBySession[data.sessions[len(data.sessions)-1].ID]
	if len(current) == 0 {
		return nil, nil
	}

	// Candidate probabilities per topic; duplicates keep the highest.
	candidates := make(map[string]float64)
	if steps == 1 {
		for topic := range current {
			for next, p := range matrix.nextProbabilities(topic) {
				if p > minPredictionProbability && p > candidates[next] {
					candidates[next] = p
				}
			}
		}
	} else {
		dist := make(map[string]float64, len(current))
		for topic := range current {
			dist[topic] = 1 / float64(len(current))
		}
		for topic, p := range matrix.propagate(dist, steps) {
			if p > minPredictionProbability {
				candidates[topic] = p
			}
		}
	}
	if len(candidates) == 0 {
		return &insights.Prediction{
			SessionCount:    len(data.sessions),
			ConfidenceScore: confidenceFromSessions(len(data.sessions)),
		}, nil
	}

	emotionsByTopic := s.relatedEmotions(data, topicsBySession)

	predictions := make([]insights.TopicPrediction, 0, len(candidates))
	for topic, p := range candidates {
		predictions = append(predictions, insights.TopicPrediction{
			Topic:           topic,
			Probability:     math.Round(p*1000) / 1000,
			RelatedEmotions: emotionsByTopic[topic],
		})
	}
	sort.Slice(predictions, func(i, j int) bool {
		if predictions[i].Probability != predictions[j].Probability {
			return predictions[i].Probability > predictions[j].Probability
		}
		return predictions[i].Topic < predictions[j].Topic
	})
	if len(predictions) > predictionLimit {
		predictions = predictions[:predictionLimit]
	}

	return &insights.Prediction{
		Predictions:     predictions,
		SessionCount:    len(data.sessions),
		ConfidenceScore: confidenceFromSessions(len(data.sessions)),
	}, nil
}

func confidenceFromSessions(count int) float64 {
	return math.Min(1.0, float64(count)/10)
}

// relatedEmotions computes, per topic, up to 3 emotions ranked by average
// intensity across the sessions where topic and emotion co-occur.
func (s *Service) relatedEmotions(data *userData, topicsBySession map[string]map[string]bool) map[string][]insights.RelatedEmotion {
	type acc struct {
		sum   float64
		count int
	}
	perTopic := make(map[string]map[string]*acc)

	for _, occ := range data.occs {
		if occ.Kind != graph.KindEmotion {
			continue
		}
		for topic := range topicsBySession[occ.SessionID] {
			emotions, ok := perTopic[topic]
			if !ok {
				emotions = make(map[string]*acc)
				perTopic[topic] = emotions
			}
			a, ok := emotions[occ.Name]
			if !ok {
				a = &acc{}
				emotions[occ.Name] = a
			}
			a.sum += occ.Intensity
			a.count++
		}
	}

	out := make(map[string][]insights.RelatedEmotion, len(perTopic))
	for topic, emotions := range perTopic {
		list := make([]insights.RelatedEmotion, 0, len(emotions))
		for name, a := range emotions {
			list = append(list, insights.RelatedEmotion{
				Name:             name,
				AverageIntensity: math.Round(a.sum/float64(a.count)*10) / 10,
			})
		}
		sort.Slice(list, func(i, j int) bool {
			if list[i].AverageIntensity != list[j].AverageIntensity {
				return list[i].AverageIntensity > list[j].AverageIntensity
			}
			return list[i].Name < list[j].Name
		})
		if len(list) > 3 {
			list = list[:3]
		}
		out[topic] = list
	}
	return out
}
