/*
Copyright © 2025 Ambor <saltbo@foxmail.com>

Permission is hereby granted, free of charge, to any person obtaining a copy
of this software and associated documentation files (the "Software"), to deal
in the Software without restriction, including without limitation the rights
to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
copies of the Software, and to permit persons to whom the Software is
furnished to do so, subject to the following conditions:

The above copyright notice and this permission notice shall be included in
all copies or substantial portions of the Software.

THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN
THE SOFTWARE.
*/
package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/eslsoft/srsd/internal/infrastructure/config"
	"github.com/eslsoft/srsd/internal/infrastructure/database"
)

// dbInitCmd creates the schema the scheduling core persists into.
var dbInitCmd = &cobra.Command{
	Use:   "db-init",
	Short: "Create the database schema",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		pool, err := database.NewConnection(cfg)
		if err != nil {
			return fmt.Errorf("db connect: %w", err)
		}
		defer pool.Close()

		if _, err := pool.Exec(cmd.Context(), schemaDDL); err != nil {
			return fmt.Errorf("apply schema: %w", err)
		}
		fmt.Println("schema applied")
		return nil
	},
}

const schemaDDL = `
CREATE TABLE IF NOT EXISTS words (
	id             BIGINT GENERATED ALWAYS AS IDENTITY PRIMARY KEY,
	deck_id        BIGINT NOT NULL DEFAULT 0,
	forward        TEXT NOT NULL,
	reverse        TEXT NOT NULL,
	example        TEXT NOT NULL DEFAULT '',
	audio_url      TEXT NOT NULL DEFAULT '',
	frequency_rank INTEGER NOT NULL DEFAULT 0,
	level          TEXT NOT NULL DEFAULT '',
	base_word_id   BIGINT NOT NULL,
	created_at     TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE INDEX IF NOT EXISTS idx_words_deck ON words (deck_id);
CREATE INDEX IF NOT EXISTS idx_words_base ON words (base_word_id);

CREATE TABLE IF NOT EXISTS user_words (
	id         BIGINT GENERATED ALWAYS AS IDENTITY PRIMARY KEY,
	user_id    BIGINT NOT NULL,
	word_id    BIGINT NOT NULL REFERENCES words (id),
	status     TEXT NOT NULL DEFAULT 'new',
	created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	deleted_at TIMESTAMPTZ
);

-- Soft-deleted rows must not block re-adding the same word.
CREATE UNIQUE INDEX IF NOT EXISTS idx_user_words_live
	ON user_words (user_id, word_id) WHERE deleted_at IS NULL;

CREATE TABLE IF NOT EXISTS cards (
	id                BIGINT GENERATED ALWAYS AS IDENTITY PRIMARY KEY,
	user_word_id      BIGINT NOT NULL REFERENCES user_words (id),
	user_id           BIGINT NOT NULL,
	word_id           BIGINT NOT NULL REFERENCES words (id),
	direction         TEXT NOT NULL,
	state             TEXT NOT NULL DEFAULT 'new',
	step_index        INTEGER NOT NULL DEFAULT 0,
	repetitions       INTEGER NOT NULL DEFAULT 0,
	interval_days     INTEGER NOT NULL DEFAULT 0,
	ease_factor       DOUBLE PRECISION NOT NULL DEFAULT 2.5,
	lapses            INTEGER NOT NULL DEFAULT 0,
	next_review_at    TIMESTAMPTZ,
	last_reviewed_at  TIMESTAMPTZ,
	first_reviewed_at TIMESTAMPTZ,
	session_attempts  INTEGER NOT NULL DEFAULT 0,
	buried_until      TIMESTAMPTZ,
	correct_count     INTEGER NOT NULL DEFAULT 0,
	incorrect_count   INTEGER NOT NULL DEFAULT 0,
	is_leech          BOOLEAN NOT NULL DEFAULT FALSE,
	created_at        TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at        TIMESTAMPTZ NOT NULL DEFAULT now(),
	UNIQUE (user_word_id, direction)
);
CREATE INDEX IF NOT EXISTS idx_cards_due ON cards (user_id, state, next_review_at);
CREATE INDEX IF NOT EXISTS idx_cards_first_reviewed ON cards (user_id, first_reviewed_at);

CREATE TABLE IF NOT EXISTS user_settings (
	user_id      BIGINT PRIMARY KEY,
	new_limit    INTEGER NOT NULL DEFAULT 20,
	review_limit INTEGER NOT NULL DEFAULT 200
);

CREATE TABLE IF NOT EXISTS deck_settings (
	user_id      BIGINT NOT NULL,
	deck_id      BIGINT NOT NULL,
	new_limit    INTEGER NOT NULL DEFAULT 20,
	review_limit INTEGER NOT NULL DEFAULT 200,
	PRIMARY KEY (user_id, deck_id)
);

CREATE TABLE IF NOT EXISTS review_logs (
	id            BIGINT GENERATED ALWAYS AS IDENTITY PRIMARY KEY,
	card_id       BIGINT NOT NULL REFERENCES cards (id),
	user_id       BIGINT NOT NULL,
	rating        INTEGER NOT NULL,
	old_state     TEXT NOT NULL,
	new_state     TEXT NOT NULL,
	interval_days INTEGER NOT NULL,
	ease_factor   DOUBLE PRECISION NOT NULL,
	reviewed_at   TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_review_logs_user_time ON review_logs (user_id, reviewed_at);
`

func init() {
	rootCmd.AddCommand(dbInitCmd)
}
