// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

// Package client implements the headless client application runtime.
//
// It wires local storage, the session manager, background synchronization,
// and the realtime channel into a single process lifecycle.
package client
