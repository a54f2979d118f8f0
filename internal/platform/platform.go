// Package platform exposes the REST backend's resources as typed
// methods over the API gateway. All credential and error handling is
// the gateway's concern; these methods only know paths and shapes.
package platform

import (
	"context"
	"fmt"
	"net/url"
	"time"

	"github.com/wallysom2/egua-cli/internal/gateway"
)

// Service groups the resource clients behind a single gateway.
type Service struct {
	api *gateway.Gateway
}

// NewService creates the resource layer over an authenticated gateway.
func NewService(api *gateway.Gateway) *Service {
	return &Service{api: api}
}

// Conteudo is a reading/content item authored by teachers.
type Conteudo struct {
	ID           string    `json:"id"`
	Titulo       string    `json:"titulo"`
	Corpo        string    `json:"corpo"`
	NivelLeitura string    `json:"nivel_leitura,omitempty"`
	CriadoEm     time.Time `json:"created_at,omitempty"`
}

// Exercicio groups questions around a content item.
type Exercicio struct {
	ID         string `json:"id"`
	Titulo     string `json:"titulo"`
	ConteudoID string `json:"conteudo_id"`
	Nivel      string `json:"nivel_dificuldade,omitempty"`
}

// Questao is a single question inside an exercise.
type Questao struct {
	ID          string `json:"id"`
	ExercicioID string `json:"exercicio_id"`
	Enunciado   string `json:"enunciado"`
	Tipo        string `json:"tipo,omitempty"`
}

// Turma is a class a learner can join by code.
type Turma struct {
	ID          string `json:"id"`
	Nome        string `json:"nome"`
	Codigo      string `json:"codigo"`
	ProfessorID string `json:"professor_id,omitempty"`
}

// Resposta is a learner's submitted answer.
type Resposta struct {
	ID        string `json:"id,omitempty"`
	QuestaoID string `json:"questao_id"`
	Codigo    string `json:"codigo"`
}

// Analise is the asynchronous AI review of a submitted answer. Pronta
// marks the terminal state; before that the payload fields are empty.
type Analise struct {
	ID         string `json:"id"`
	RespostaID string `json:"resposta_id"`
	Pronta     bool   `json:"pronta"`
	Feedback   string `json:"feedback,omitempty"`
	Pontuacao  *int   `json:"pontuacao,omitempty"`
}

func (s *Service) ListConteudos(ctx context.Context) ([]Conteudo, error) {
	var out []Conteudo
	if err := s.api.Get(ctx, "/conteudos", &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (s *Service) GetConteudo(ctx context.Context, id string) (*Conteudo, error) {
	var out Conteudo
	if err := s.api.Get(ctx, "/conteudos/"+url.PathEscape(id), &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (s *Service) CreateConteudo(ctx context.Context, in Conteudo) (*Conteudo, error) {
	var out Conteudo
	if err := s.api.Post(ctx, "/conteudos", in, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (s *Service) UpdateConteudo(ctx context.Context, id string, in Conteudo) (*Conteudo, error) {
	var out Conteudo
	if err := s.api.Put(ctx, "/conteudos/"+url.PathEscape(id), in, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (s *Service) DeleteConteudo(ctx context.Context, id string) error {
	return s.api.Delete(ctx, "/conteudos/"+url.PathEscape(id), nil)
}

func (s *Service) GetExercicio(ctx context.Context, id string) (*Exercicio, error) {
	var out Exercicio
	if err := s.api.Get(ctx, "/exercicios/"+url.PathEscape(id), &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (s *Service) ListQuestoes(ctx context.Context, exercicioID string) ([]Questao, error) {
	var out []Questao
	path := fmt.Sprintf("/questoes?exercicio_id=%s", url.QueryEscape(exercicioID))
	if err := s.api.Get(ctx, path, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// ExercicioComQuestoes fetches an exercise and its questions. The
// gateway gives no cross-request ordering, so the two dependent calls
// are sequenced here and both must succeed before the pair is usable.
func (s *Service) ExercicioComQuestoes(ctx context.Context, id string) (*Exercicio, []Questao, error) {
	exercicio, err := s.GetExercicio(ctx, id)
	if err != nil {
		return nil, nil, err
	}

	questoes, err := s.ListQuestoes(ctx, exercicio.ID)
	if err != nil {
		return nil, nil, err
	}

	return exercicio, questoes, nil
}

// MinhasTurmas lists the classes the signed-in user belongs to.
func (s *Service) MinhasTurmas(ctx context.Context) ([]Turma, error) {
	var out []Turma
	if err := s.api.Get(ctx, "/turmas/minhas", &out); err != nil {
		return nil, err
	}
	return out, nil
}

// JoinTurma enrolls the signed-in learner into a class by its code.
func (s *Service) JoinTurma(ctx context.Context, codigo string) (*Turma, error) {
	var out Turma
	if err := s.api.Post(ctx, "/turmas/entrar", map[string]string{"codigo": codigo}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// SubmitResposta sends a learner's answer for asynchronous review and
// returns the stored record carrying the job identifier.
func (s *Service) SubmitResposta(ctx context.Context, in Resposta) (*Resposta, error) {
	var out Resposta
	if err := s.api.Post(ctx, "/respostas", in, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// GetAnalise fetches the review of a submitted answer. A 404 means the
// review has not been produced yet; callers translate that into a
// waiting state rather than an error.
func (s *Service) GetAnalise(ctx context.Context, respostaID string) (*Analise, error) {
	var out Analise
	if err := s.api.Get(ctx, "/respostas/analise/"+url.PathEscape(respostaID), &out); err != nil {
		return nil, err
	}
	return &out, nil
}
