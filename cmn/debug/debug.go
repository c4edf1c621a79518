// Package debug provides assertions that are compiled out unless the
// "debug" build tag is set.
/*
 * Copyright (c) 2018-2024, NVIDIA CORPORATION. All rights reserved.
 */
package debug
